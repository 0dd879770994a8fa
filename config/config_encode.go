package config

import (
	"bytes"

	"github.com/BurntSushi/toml"
)

// Encode serializes cfg as TOML, the inverse of the decode path used by
// LoadFromSecureStore/Reload. Used to bootstrap the secure store's
// application scope on first run, before any admin-edited config exists.
func Encode(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
