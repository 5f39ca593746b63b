package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		ListenAddr: ":8443",
		Prefix:     "/dav",
		Realm:      "Test Realm",
		RootName:   "Home",
		BaseDir:    "/home/user/.local/share/davgate",
		LogDir:     "/home/user/.local/share/davgate/log",
		TLS:        TLSConfig{CertFile: "/etc/davgate/cert.pem", KeyFile: "/etc/davgate/key.pem"},
		Database:   DatabaseConfig{Type: "sqlite", Path: "/data/files.db"},
		Blobs: BlobConfig{
			Type:           "s3",
			S3Bucket:       "filecloud",
			S3Prefix:       "uploads/",
			S3Endpoint:     "http://minio:9000",
			S3UsePathStyle: true,
		},
		Filesystem: FilesystemConfig{
			Ignore:     []string{"~$*", "*.tmp"},
			IgnoreFile: "/etc/davgate/ignore",
		},
	}

	var buf bytes.Buffer
	m := &Manager{}

	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.ListenAddr != original.ListenAddr {
		t.Errorf("ListenAddr = %q, want %q", got.ListenAddr, original.ListenAddr)
	}
	if got.Prefix != original.Prefix {
		t.Errorf("Prefix = %q, want %q", got.Prefix, original.Prefix)
	}
	if got.TLS != original.TLS {
		t.Errorf("TLS = %+v, want %+v", got.TLS, original.TLS)
	}
	if got.Database != original.Database {
		t.Errorf("Database = %+v, want %+v", got.Database, original.Database)
	}
	if got.Blobs != original.Blobs {
		t.Errorf("Blobs = %+v, want %+v", got.Blobs, original.Blobs)
	}
	if len(got.Filesystem.Ignore) != 2 {
		t.Fatalf("len(Filesystem.Ignore) = %d, want 2", len(got.Filesystem.Ignore))
	}
	if got.Filesystem.IgnoreFile != original.Filesystem.IgnoreFile {
		t.Errorf("Filesystem.IgnoreFile = %q, want %q", got.Filesystem.IgnoreFile, original.Filesystem.IgnoreFile)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/davgate")

	if cfg.ListenAddr != ":3001" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":3001")
	}
	if cfg.Prefix != "/webdav" {
		t.Errorf("Prefix = %q, want %q", cfg.Prefix, "/webdav")
	}
	if cfg.LogDir != "/data/davgate/log" {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, "/data/davgate/log")
	}
	if cfg.Database.Path != "/data/davgate/files.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/data/davgate/files.db")
	}
	if cfg.Blobs.Dir != "/data/davgate/uploads" {
		t.Errorf("Blobs.Dir = %q, want %q", cfg.Blobs.Dir, "/data/davgate/uploads")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestConfig_ApplyEnv(t *testing.T) {
	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	t.Run("overrides port, database and uploads", func(t *testing.T) {
		cfg := NewConfig("/base")
		cfg.Blobs = BlobConfig{Type: "s3", S3Bucket: "b"}
		err := cfg.ApplyEnv(env(map[string]string{
			"WEBDAV_PORT": "4000",
			"DB_PATH":     "/data/files.db",
			"UPLOAD_DIR":  "/data/uploads",
		}))
		if err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}
		if cfg.ListenAddr != ":4000" {
			t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":4000")
		}
		if cfg.Database != (DatabaseConfig{Type: "sqlite", Path: "/data/files.db"}) {
			t.Errorf("Database = %+v", cfg.Database)
		}
		if cfg.Blobs != (BlobConfig{Type: "filesystem", Dir: "/data/uploads"}) {
			t.Errorf("Blobs = %+v", cfg.Blobs)
		}
	})

	t.Run("leaves config alone when unset", func(t *testing.T) {
		cfg := NewConfig("/base")
		want := *cfg
		if err := cfg.ApplyEnv(env(nil)); err != nil {
			t.Fatalf("ApplyEnv() error = %v", err)
		}
		if cfg.ListenAddr != want.ListenAddr || cfg.Database != want.Database || cfg.Blobs != want.Blobs {
			t.Errorf("config changed without environment: %+v", cfg)
		}
	})

	t.Run("rejects bad port", func(t *testing.T) {
		for _, port := range []string{"abc", "0", "70000"} {
			cfg := NewConfig("/base")
			if err := cfg.ApplyEnv(env(map[string]string{"WEBDAV_PORT": port})); err == nil {
				t.Errorf("ApplyEnv(WEBDAV_PORT=%q) expected error", port)
			}
		}
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown database type",
			mutate:  func(c *Config) { c.Database.Type = "postgres" },
			wantErr: "unknown database type",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Database.Path = "" },
			wantErr: "database.path",
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.Blobs = BlobConfig{Type: "s3"} },
			wantErr: "s3_bucket",
		},
		{
			name:    "filesystem without dir",
			mutate:  func(c *Config) { c.Blobs.Dir = "" },
			wantErr: "blobs.dir",
		},
		{
			name:    "half a tls pair",
			mutate:  func(c *Config) { c.TLS.CertFile = "/cert.pem" },
			wantErr: "tls",
		},
		{
			name:   "memory backends",
			mutate: func(c *Config) { c.Database = DatabaseConfig{Type: "memory"}; c.Blobs = BlobConfig{Type: "memory"} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/base")
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "davgate.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("config file mode = %v, want 0600", info.Mode().Perm())
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "davgate.toml")
		cfg := NewConfig(dir)

		if err := Init(path, cfg); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}

		err := Init(path, cfg)
		if err == nil {
			t.Fatal("second Init() expected error")
		}
	})
}

func TestReadFromFile(t *testing.T) {
	t.Run("reads valid config", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "davgate.toml")
		cfg := NewConfig(dir)
		cfg.Database = DatabaseConfig{Type: "memory"}

		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := ReadFromFile(path)
		if err != nil {
			t.Fatalf("ReadFromFile() error = %v", err)
		}
		if got.Database.Type != "memory" {
			t.Errorf("Database.Type = %q, want %q", got.Database.Type, "memory")
		}
	})

	t.Run("returns error for missing file", func(t *testing.T) {
		_, err := ReadFromFile("/nonexistent/path/davgate.toml")
		if err == nil {
			t.Fatal("ReadFromFile() expected error for missing file")
		}
	})
}
