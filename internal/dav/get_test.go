package dav_test

import (
	"context"
	"net/http"
	"testing"
)

func TestHandler_Get(t *testing.T) {
	env := newTestEnv(t)
	env.mkcol("/webdav/Docs")
	env.put("/webdav/Docs/read%20me.txt", "hello world")

	t.Run("streams content with metadata headers", func(t *testing.T) {
		rec := env.mustStatus(http.StatusOK, http.MethodGet, "/webdav/Docs/read%20me.txt", "", nil)
		if rec.Body.String() != "hello world" {
			t.Errorf("body = %q", rec.Body.String())
		}
		f := env.file("Docs", "read me.txt")
		want := map[string]string{
			"Content-Type":        "text/plain",
			"Content-Length":      "11",
			"ETag":                `"` + f.ID + `"`,
			"Last-Modified":       "Fri, 14 Mar 2025 09:26:53 GMT",
			"Content-Disposition": `attachment; filename="read%20me.txt"`,
		}
		for k, v := range want {
			if got := rec.Header().Get(k); got != v {
				t.Errorf("%s = %q, want %q", k, got, v)
			}
		}
	})

	t.Run("head has headers only", func(t *testing.T) {
		rec := env.mustStatus(http.StatusOK, http.MethodHead, "/webdav/Docs/read%20me.txt", "", nil)
		if rec.Body.Len() != 0 {
			t.Errorf("HEAD body = %q", rec.Body.String())
		}
		if got := rec.Header().Get("Content-Length"); got != "11" {
			t.Errorf("Content-Length = %q", got)
		}
	})

	t.Run("collection", func(t *testing.T) {
		env.mustStatus(http.StatusMethodNotAllowed, http.MethodGet, "/webdav/Docs/", "", nil)
		env.mustStatus(http.StatusMethodNotAllowed, http.MethodGet, "/webdav/", "", nil)
	})

	t.Run("missing", func(t *testing.T) {
		env.mustStatus(http.StatusNotFound, http.MethodGet, "/webdav/Docs/other.txt", "", nil)
		env.mustStatus(http.StatusNotFound, http.MethodHead, "/webdav/Nope/other.txt", "", nil)
	})

	t.Run("names are case-sensitive", func(t *testing.T) {
		env.mustStatus(http.StatusNotFound, http.MethodGet, "/webdav/docs/read%20me.txt", "", nil)
	})

	t.Run("row without blob", func(t *testing.T) {
		env.put("/webdav/orphan.bin", "data")
		f := env.file("orphan.bin")
		if err := env.blobs.Delete(context.Background(), f.StorageKey); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		env.mustStatus(http.StatusNotFound, http.MethodGet, "/webdav/orphan.bin", "", nil)
		env.mustStatus(http.StatusNotFound, http.MethodHead, "/webdav/orphan.bin", "", nil)
	})
}
