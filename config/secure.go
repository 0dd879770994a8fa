package config

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"filippo.io/age"
)

// ScopeApplication is the secure-store scope under which the main
// application config is kept; ScopeDiscord could hold a narrower secret
// file in deployments that want to rotate the webhook independently, but
// a single scope is all this core currently uses.
const ScopeApplication = "application"

// ConfigStore is the subset of store.Store the secure config layer needs:
// an append-only, scope-keyed blob history. Satisfied by store/zombiezen's
// LatestConfig/InsertConfig.
type ConfigStore interface {
	LatestConfig(ctx context.Context, scope string) ([]byte, error)
	InsertConfig(ctx context.Context, scope string, content []byte, format, description string) error
}

// SecureStore retrieves and stores age-encrypted configuration blobs.
// Named SecureStore (not SecureConfig) to match what this abstraction
// actually holds: an encrypted byte stream, not a parsed Config.
type SecureStore interface {
	Latest(ctx context.Context, scope string) ([]byte, error)
	Save(ctx context.Context, scope string, plaintextData []byte, format, description string) error
}

// secureStoreAge implements SecureStore using age. It stores only the key
// file path and re-parses identities on demand, minimizing how long key
// material sits in memory.
type secureStoreAge struct {
	store      ConfigStore
	ageKeyPath string
	logger     *slog.Logger
}

// NewSecureStoreAge builds a SecureStore backed by age encryption and the
// given ConfigStore. Key file validation happens lazily, on first Latest
// or Save call.
func NewSecureStoreAge(store ConfigStore, ageKeyPath string, logger *slog.Logger) (SecureStore, error) {
	return &secureStoreAge{
		store:      store,
		ageKeyPath: ageKeyPath,
		logger:     logger.With("component", "secure_store"),
	}, nil
}

func loadAndParseIdentities(keyPath string, logger *slog.Logger, operation string) ([]age.Identity, error) {
	keyContent, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("config: read age key file %q for %s: %w", keyPath, operation, err)
	}

	identities, err := age.ParseIdentities(bytes.NewReader(keyContent))
	for i := range keyContent {
		keyContent[i] = 0
	}

	if err != nil {
		return nil, fmt.Errorf("config: parse age identities from %q for %s: %w", keyPath, operation, err)
	}
	if len(identities) == 0 {
		return nil, fmt.Errorf("config: no age identities found in %q for %s", keyPath, operation)
	}
	if _, ok := identities[0].(*age.X25519Identity); !ok {
		return nil, fmt.Errorf("config: unsupported age identity type %T, must be X25519", identities[0])
	}

	return identities, nil
}

func (s *secureStoreAge) Latest(ctx context.Context, scope string) ([]byte, error) {
	content, err := s.store.LatestConfig(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("config: latest config for scope %q: %w", scope, err)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("config: no configuration content found for scope %q", scope)
	}

	identities, err := loadAndParseIdentities(s.ageKeyPath, s.logger, "decryption")
	if err != nil {
		return nil, err
	}

	decryptReader, err := age.Decrypt(bytes.NewReader(content), identities...)
	if err != nil {
		return nil, fmt.Errorf("config: decrypt configuration for scope %q: %w", scope, err)
	}
	decrypted, err := io.ReadAll(decryptReader)
	if err != nil {
		return nil, fmt.Errorf("config: read decrypted stream for scope %q: %w", scope, err)
	}
	return decrypted, nil
}

func (s *secureStoreAge) Save(ctx context.Context, scope string, plaintextData []byte, format, description string) error {
	identities, err := loadAndParseIdentities(s.ageKeyPath, s.logger, "encryption")
	if err != nil {
		return err
	}
	recipient := identities[0].(*age.X25519Identity).Recipient()

	var encrypted bytes.Buffer
	w, err := age.Encrypt(&encrypted, recipient)
	if err != nil {
		return fmt.Errorf("config: create age encryption writer for scope %q: %w", scope, err)
	}
	if _, err := io.Copy(w, bytes.NewReader(plaintextData)); err != nil {
		return fmt.Errorf("config: write plaintext for scope %q: %w", scope, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("config: close age encryption writer for scope %q: %w", scope, err)
	}

	if err := s.store.InsertConfig(ctx, scope, encrypted.Bytes(), format, description); err != nil {
		return fmt.Errorf("config: insert config for scope %q: %w", scope, err)
	}
	s.logger.Info("saved secure config", "scope", scope, "format", format)
	return nil
}
