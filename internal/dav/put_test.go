package dav_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"davgate/internal/testutil"
)

func TestHandler_Put(t *testing.T) {
	t.Run("creates a file", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.mustStatus(http.StatusCreated, http.MethodPut, "/webdav/Report.PDF", "%PDF-1.7", nil)

		f := env.file("Report.PDF")
		if got := rec.Header().Get("ETag"); got != `"`+f.ID+`"` {
			t.Errorf("ETag = %q, want %q", got, `"`+f.ID+`"`)
		}
		if f.SizeBytes != 8 {
			t.Errorf("SizeBytes = %d, want 8", f.SizeBytes)
		}
		if f.MimeType != "application/pdf" {
			t.Errorf("MimeType = %q", f.MimeType)
		}
		if f.OwnerID != aliceID {
			t.Errorf("OwnerID = %q", f.OwnerID)
		}
		if !strings.HasSuffix(f.StorageKey, ".PDF") {
			t.Errorf("StorageKey = %q, want the original extension", f.StorageKey)
		}
		if !f.CreatedAt.Equal(env.clock.Now()) || !f.UpdatedAt.Equal(env.clock.Now()) {
			t.Errorf("timestamps = %v / %v", f.CreatedAt, f.UpdatedAt)
		}
		if got := testutil.ReadBlob(t, env.blobs, f.StorageKey); got != "%PDF-1.7" {
			t.Errorf("blob = %q", got)
		}
	})

	t.Run("empty body", func(t *testing.T) {
		env := newTestEnv(t)
		env.mustStatus(http.StatusCreated, http.MethodPut, "/webdav/empty", "", nil)
		f := env.file("empty")
		if f.SizeBytes != 0 || f.MimeType != "application/octet-stream" {
			t.Errorf("file = %+v", f)
		}
	})

	t.Run("overwrite keeps the identity", func(t *testing.T) {
		env := newTestEnv(t)
		env.mkcol("/webdav/Docs")
		first := env.mustStatus(http.StatusCreated, http.MethodPut, "/webdav/Docs/a.txt", "one", nil)
		before := env.file("Docs", "a.txt")

		env.clock.Advance(time.Hour)
		second := env.mustStatus(http.StatusNoContent, http.MethodPut, "/webdav/Docs/a.txt", "second", nil)
		after := env.file("Docs", "a.txt")

		if first.Header().Get("ETag") != second.Header().Get("ETag") {
			t.Errorf("ETag changed: %q -> %q", first.Header().Get("ETag"), second.Header().Get("ETag"))
		}
		if after.ID != before.ID {
			t.Errorf("ID changed: %q -> %q", before.ID, after.ID)
		}
		if after.StorageKey == before.StorageKey {
			t.Error("expected a fresh storage key")
		}
		if after.SizeBytes != 6 {
			t.Errorf("SizeBytes = %d, want 6", after.SizeBytes)
		}
		if !after.CreatedAt.Equal(before.CreatedAt) {
			t.Errorf("CreatedAt changed: %v -> %v", before.CreatedAt, after.CreatedAt)
		}
		if !after.UpdatedAt.Equal(before.UpdatedAt.Add(time.Hour)) {
			t.Errorf("UpdatedAt = %v", after.UpdatedAt)
		}
		if keys := env.blobs.Keys(); len(keys) != 1 || keys[0] != after.StorageKey {
			t.Errorf("blobs = %v, want only %s", keys, after.StorageKey)
		}

		rec := env.mustStatus(http.StatusOK, http.MethodGet, "/webdav/Docs/a.txt", "", nil)
		if rec.Body.String() != "second" {
			t.Errorf("body = %q", rec.Body.String())
		}
	})

	t.Run("missing parent", func(t *testing.T) {
		env := newTestEnv(t)
		env.mustStatus(http.StatusConflict, http.MethodPut, "/webdav/Nope/a.txt", "x", nil)
		if keys := env.blobs.Keys(); len(keys) != 0 {
			t.Errorf("blobs = %v, want none", keys)
		}
	})

	t.Run("parent is a file", func(t *testing.T) {
		env := newTestEnv(t)
		env.put("/webdav/a.txt", "x")
		env.mustStatus(http.StatusConflict, http.MethodPut, "/webdav/a.txt/b.txt", "x", nil)
	})

	t.Run("over a folder", func(t *testing.T) {
		env := newTestEnv(t)
		env.mkcol("/webdav/Docs")
		env.mustStatus(http.StatusMethodNotAllowed, http.MethodPut, "/webdav/Docs", "x", nil)
		env.folder("Docs")
	})

	t.Run("root", func(t *testing.T) {
		env := newTestEnv(t)
		env.mustStatus(http.StatusMethodNotAllowed, http.MethodPut, "/webdav/", "x", nil)
	})

	t.Run("truncated body", func(t *testing.T) {
		env := newTestEnv(t)
		req := newRawRequest(t, http.MethodPut, "/webdav/short.txt", "abc")
		req.ContentLength = 10
		rec := env.serve(req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		env.assertMissing("short.txt")
		if keys := env.blobs.Keys(); len(keys) != 0 {
			t.Errorf("blobs = %v, want none", keys)
		}
	})
}
