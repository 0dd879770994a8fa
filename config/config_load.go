package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BurntSushi/toml"
)

// LoadFromSecureStore fetches the application config blob from the secure
// store, decrypts it, decodes it as TOML, and validates it. Grounded on
// the teacher's config.LoadFromDb.
func LoadFromSecureStore(ctx context.Context, secureStore SecureStore, logger *slog.Logger) (*Config, error) {
	logger.Info("loading configuration from secure store")

	decrypted, err := secureStore.Latest(ctx, ScopeApplication)
	if err != nil {
		return nil, fmt.Errorf("config: fetch latest application config: %w", err)
	}

	cfg := &Config{}
	if _, err := toml.Decode(string(decrypted), cfg); err != nil {
		return nil, fmt.Errorf("config: decode TOML: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	logger.Info("successfully loaded configuration")
	return cfg, nil
}
