package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BurntSushi/toml"
)

// Reload returns a closure that fetches, decodes, validates, and installs
// the latest application config into provider. Intended to be called from
// a SIGHUP handler; prepared once, invoked later, grounded on the
// teacher's config.Reload.
func Reload(secureStore SecureStore, provider *Provider, logger *slog.Logger) func() error {
	return func() error {
		ctx := context.Background()
		decrypted, err := secureStore.Latest(ctx, ScopeApplication)
		if err != nil {
			logger.Error("reload: failed to fetch latest application config", "error", err)
			return fmt.Errorf("config: fetch latest application config: %w", err)
		}
		if len(decrypted) == 0 {
			logger.Error("reload: fetched application config is empty")
			return fmt.Errorf("config: fetched application config is empty")
		}

		newCfg := &Config{}
		if _, err := toml.Decode(string(decrypted), newCfg); err != nil {
			logger.Error("reload: failed to decode new application config", "error", err)
			return fmt.Errorf("config: decode TOML: %w", err)
		}

		if err := Validate(newCfg); err != nil {
			logger.Error("reload: new application config validation failed", "error", err)
			return fmt.Errorf("config: validation failed: %w", err)
		}

		provider.Update(newCfg)
		logger.Info("reload: application configuration reloaded")
		return nil
	}
}
