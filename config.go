package paserk

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultVersion is used when a Config does not name a version.
const DefaultVersion = "v4"

// Config is the file form of a Wrapper's settings:
//
//	version = "v4"
//	key_id  = "arn:aws:kms:us-west-2:111122223333:key/1234abcd"
//
//	[encryption_context]
//	service = "billing"
type Config struct {
	Version           string            `toml:"version"`
	KeyID             string            `toml:"key_id"`
	EncryptionContext map[string]string `toml:"encryption_context"`
}

// LoadConfig reads and validates a TOML config file.
func LoadConfig(path string) (Config, error) {
	cfg, err := ReadConfig(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.finish(); err != nil {
		return Config{}, fmt.Errorf("paserk: config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

// ReadConfig decodes a TOML config file without applying defaults or validating,
// for callers that merge in other settings before calling Validate.
func ReadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("paserk: config load failed (%s): %w", path, err)
	}
	cfg, err := DecodeConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("paserk: config parse failed (%s): %w", path, err)
	}
	return cfg, nil
}

// ParseConfig decodes and validates TOML config data, applying defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg, err := DecodeConfig(data)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.finish(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DecodeConfig decodes TOML config data as-is.
func DecodeConfig(data []byte) (Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// finish applies defaults and validates.
func (c *Config) finish() error {
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	return c.Validate()
}

// Validate checks that the version is known and the key ID is set.
func (c Config) Validate() error {
	if _, err := ParseVersion(c.Version); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.KeyID == "" {
		return fmt.Errorf("%w: key_id must not be empty", ErrInvalidConfig)
	}
	if _, ok := c.EncryptionContext[HeaderContextKey]; ok {
		return fmt.Errorf("%w: encryption_context must not set %s", ErrInvalidConfig, HeaderContextKey)
	}
	return nil
}

// NewFromConfig creates a Wrapper from cfg. Options are applied after the
// config's encryption context, so WithEncryptionContext overrides it.
func NewFromConfig(service Service, methodID string, cfg Config, opts ...Option) (*Wrapper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	version, err := ParseVersion(cfg.Version)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithEncryptionContext(cfg.EncryptionContext)}, opts...)
	return New(service, version, cfg.KeyID, methodID, opts...)
}
