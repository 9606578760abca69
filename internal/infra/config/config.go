package config

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/argon2"
	"gopkg.in/yaml.v3"

	"creator-chat/internal/domain"
)

// envPrefix is the prefix of every environment override.
const envPrefix = "CREATORCHAT_"

// Config is the root client configuration.
type Config struct {
	Includes []string      `yaml:"includes,omitempty"`
	Backend  BackendConfig `yaml:"backend"`
	Stream   StreamConfig  `yaml:"stream"`
	Store    StoreConfig   `yaml:"store"`
	Render   RenderConfig  `yaml:"render"`
	Logger   LoggerConfig  `yaml:"logger"`
	Tracer   TracerConfig  `yaml:"tracer"`
}

// BackendConfig holds settings for the chat backend API.
type BackendConfig struct {
	BaseURL     string               `yaml:"base_url"`
	Token       string               `yaml:"token"`
	ChatID      string               `yaml:"chat_id"`
	ConnTimeout time.Duration        `yaml:"conn_timeout"`
	RespTimeout time.Duration        `yaml:"resp_timeout"`
	Pool        PoolConfig           `yaml:"pool"`
	RateLimit   RateLimitConfig      `yaml:"rate_limit"`
	Breaker     CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// PoolConfig holds HTTP connection pool settings.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `yaml:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// RateLimitConfig throttles outgoing sends. A zero PerSecond disables it.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// CircuitBreakerConfig holds circuit breaker settings for backend calls.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// StreamConfig selects the push-channel transport.
type StreamConfig struct {
	Transport string `yaml:"transport"` // auto, sse, websocket
	ReadLimit int64  `yaml:"read_limit"`
}

// StoreConfig selects the message store.
type StoreConfig struct {
	Driver string `yaml:"driver"` // memory, sqlite
	Path   string `yaml:"path"`
}

// RenderConfig holds terminal rendering settings.
type RenderConfig struct {
	Markdown bool `yaml:"markdown"`
	Width    int  `yaml:"width"`
	// ResultSchemas maps a tool name to a JSON Schema file its results must satisfy.
	ResultSchemas map[string]string `yaml:"result_schemas,omitempty"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
}

// defaultDataDir returns the persistent data directory under $HOME/.creatorchat.
// Falls back to "./data" if $HOME cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".creatorchat")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:     "http://localhost:8080/api",
			ConnTimeout: 10 * time.Second,
			RespTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				PerSecond: 2,
				Burst:     4,
			},
			Breaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Stream: StreamConfig{
			Transport: "auto",
			ReadLimit: 1 << 20,
		},
		Store: StoreConfig{
			Driver: "memory",
			Path:   filepath.Join(defaultDataDir(), "messages.db"),
		},
		Render: RenderConfig{
			Markdown: true,
			Width:    80,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads a YAML config file, applies env var overrides, and decrypts secrets.
// A missing file is not an error: defaults plus environment are used.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: read config: %w", domain.ErrConfigLoad, err)
	}

	if err == nil {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve config path: %w", domain.ErrConfigLoad, err)
		}
		if err := validatePermissions(absPath); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrConfigLoad, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config: %w", domain.ErrConfigLoad, err)
		}
		if len(cfg.Includes) > 0 {
			visited := map[string]bool{absPath: true}
			if err := processIncludes(cfg, filepath.Dir(absPath), visited, 0); err != nil {
				return nil, fmt.Errorf("%w: %w", domain.ErrConfigLoad, err)
			}
			// The main file wins over anything it includes.
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("%w: parse config (second pass): %w", domain.ErrConfigLoad, err)
			}
			cfg.Includes = nil
		}
	}

	ApplyEnvOverrides(cfg)

	if passphrase := os.Getenv(envPrefix + "CONFIG_KEY"); passphrase != "" {
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, err
		}
	} else if strings.HasPrefix(cfg.Backend.Token, "enc:") {
		return nil, fmt.Errorf("%w: backend.token is encrypted but %sCONFIG_KEY is not set", domain.ErrDecryption, envPrefix)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps CREATORCHAT_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv(envPrefix + "BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv(envPrefix + "TOKEN"); v != "" {
		cfg.Backend.Token = v
	}
	if v := os.Getenv(envPrefix + "CHAT_ID"); v != "" {
		cfg.Backend.ChatID = v
	}
	if v := os.Getenv(envPrefix + "RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Backend.RateLimit.PerSecond = f
		}
	}
	if v := os.Getenv(envPrefix + "STREAM_TRANSPORT"); v != "" {
		cfg.Stream.Transport = v
	}
	if v := os.Getenv(envPrefix + "STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv(envPrefix + "STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv(envPrefix + "RENDER_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Render.Width = n
		}
	}
	if v := os.Getenv(envPrefix + "RENDER_MARKDOWN"); v != "" {
		cfg.Render.Markdown = v == "true" || v == "1"
	}
	if v := os.Getenv(envPrefix + "LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv(envPrefix + "LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv(envPrefix + "TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv(envPrefix + "TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

// decryptSecrets replaces "enc:..." secret values with their plaintext.
func decryptSecrets(cfg *Config, passphrase string) error {
	secrets := map[string]*string{
		"backend.token": &cfg.Backend.Token,
	}
	for name, fp := range secrets {
		if !strings.HasPrefix(*fp, "enc:") {
			continue
		}
		plain, err := DecryptValue(strings.TrimPrefix(*fp, "enc:"), passphrase)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", domain.ErrDecryption, name, err)
		}
		*fp = plain
	}
	return nil
}

// EncryptValue encrypts a plaintext value with AES-256-GCM using a passphrase.
// The result is hex(salt) + ":" + hex(nonce+ciphertext), without the "enc:" prefix.
func EncryptValue(plaintext, passphrase string) (string, error) {
	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(sealed), nil
}

// DecryptValue decrypts a value produced by EncryptValue.
func DecryptValue(encrypted, passphrase string) (string, error) {
	saltHex, dataHex, ok := strings.Cut(encrypted, ":")
	if !ok {
		return "", fmt.Errorf("invalid encrypted format")
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return "", fmt.Errorf("decode salt: %w", err)
	}
	data, err := hex.DecodeString(dataHex)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// deriveKey uses Argon2id to derive a 32-byte key from passphrase + salt.
func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// validatePermissions rejects config files writable by group or others,
// since they may hold the backend token.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o022 != 0 {
		return fmt.Errorf("config file %s has insecure permissions %o (want 0600 or 0644)", path, mode)
	}
	return nil
}
