package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// DefaultPort is the port the gateway listens on when nothing else is set.
const DefaultPort = 3001

// Config represents the main configuration for davgate.
type Config struct {
	ListenAddr string           `toml:"listen_addr"`
	Prefix     string           `toml:"prefix"`
	Realm      string           `toml:"realm"`
	RootName   string           `toml:"root_name"`
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	LogLevel   string           `toml:"log_level"` // "debug", "info" (default), "warn" or "error"
	TLS        TLSConfig        `toml:"tls"`
	Database   DatabaseConfig   `toml:"database"`
	Blobs      BlobConfig       `toml:"blobs"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// TLSConfig enables HTTPS when both files are set.
type TLSConfig struct {
	CertFile string `toml:"cert_file,omitempty"`
	KeyFile  string `toml:"key_file,omitempty"`
}

// Enabled reports whether a certificate and key are configured.
func (c TLSConfig) Enabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// FilesystemConfig holds the names that are never written to the store.
type FilesystemConfig struct {
	Ignore     []string `toml:"ignore"`
	IgnoreFile string   `toml:"ignore_file,omitempty"`
}

// BlobConfig represents configuration for the blob store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type BlobConfig struct {
	Type string `toml:"type"` // "filesystem", "s3" or "memory"

	// FileSystem-specific fields (only used when Type == "filesystem")
	Dir string `toml:"dir,omitempty"`

	// S3-specific fields (only used when Type == "s3")
	S3Bucket          string `toml:"s3_bucket,omitempty"`
	S3Prefix          string `toml:"s3_prefix,omitempty"`
	S3Region          string `toml:"s3_region,omitempty"`
	S3Endpoint        string `toml:"s3_endpoint,omitempty"`
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
	S3UsePathStyle    bool   `toml:"s3_use_path_style,omitempty"`
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type string `toml:"type"`           // "sqlite" or "memory"
	Path string `toml:"path,omitempty"` // only used for type=sqlite
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		ListenAddr: fmt.Sprintf(":%d", DefaultPort),
		Prefix:     "/webdav",
		Realm:      "FileCloud WebDAV",
		RootName:   "FileCloud",
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		LogLevel:   "info",
		Database:   DatabaseConfig{Type: "sqlite", Path: filepath.Join(baseDir, "files.db")},
		Blobs:      BlobConfig{Type: "filesystem", Dir: filepath.Join(baseDir, "uploads")},
	}
}

// ApplyEnv overrides settings from the environment variables the FileCloud
// deployment already sets for the web application:
//   - WEBDAV_PORT: listen port
//   - DB_PATH: SQLite database file
//   - UPLOAD_DIR: blob directory
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if port := getenv("WEBDAV_PORT"); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n <= 0 || n > 65535 {
			return fmt.Errorf("invalid WEBDAV_PORT %q", port)
		}
		c.ListenAddr = fmt.Sprintf(":%d", n)
	}
	if path := getenv("DB_PATH"); path != "" {
		c.Database = DatabaseConfig{Type: "sqlite", Path: path}
	}
	if dir := getenv("UPLOAD_DIR"); dir != "" {
		c.Blobs = BlobConfig{Type: "filesystem", Dir: dir}
	}
	return nil
}

// Validate checks that the tagged unions carry the fields their type needs.
func (c *Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen_addr is required"))
	}
	switch c.Database.Type {
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown database type: %q", c.Database.Type))
	}
	switch c.Blobs.Type {
	case "filesystem":
		if c.Blobs.Dir == "" {
			errs = append(errs, errors.New("blobs.dir is required for filesystem"))
		}
	case "s3":
		if c.Blobs.S3Bucket == "" {
			errs = append(errs, errors.New("blobs.s3_bucket is required for s3"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown blob store type: %q", c.Blobs.Type))
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		errs = append(errs, errors.New("tls.cert_file and tls.key_file must be set together"))
	}
	return errors.Join(errs...)
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold S3 credentials.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
