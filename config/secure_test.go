package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
)

// fakeConfigStore is a minimal in-memory ConfigStore, grounded on the
// teacher's db/mock function-field fakes but narrowed to the two methods
// SecureStore actually needs.
type fakeConfigStore struct {
	blobs map[string][]byte
}

func newFakeConfigStore() *fakeConfigStore {
	return &fakeConfigStore{blobs: make(map[string][]byte)}
}

func (f *fakeConfigStore) LatestConfig(ctx context.Context, scope string) ([]byte, error) {
	b, ok := f.blobs[scope]
	if !ok {
		return nil, errors.New("not found")
	}
	return b, nil
}

func (f *fakeConfigStore) InsertConfig(ctx context.Context, scope string, content []byte, format, description string) error {
	f.blobs[scope] = content
	return nil
}

func newTestAgeKey(t *testing.T) string {
	t.Helper()
	key, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("generate age identity: %v", err)
	}
	path := filepath.Join(t.TempDir(), "key.txt")
	if err := os.WriteFile(path, []byte(key.String()), 0600); err != nil {
		t.Fatalf("write age key file: %v", err)
	}
	return path
}

func TestSecureStoreAgeSaveAndLatestRoundtrip(t *testing.T) {
	keyPath := newTestAgeKey(t)
	store := newFakeConfigStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ss, err := NewSecureStoreAge(store, keyPath, logger)
	if err != nil {
		t.Fatalf("NewSecureStoreAge: %v", err)
	}

	ctx := context.Background()
	want := []byte("db_file = \"db.sqlite\"\n")
	if err := ss.Save(ctx, ScopeApplication, want, "toml", "test"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := ss.Latest(ctx, ScopeApplication)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSecureStoreAgeLatestMissingScope(t *testing.T) {
	keyPath := newTestAgeKey(t)
	store := newFakeConfigStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ss, err := NewSecureStoreAge(store, keyPath, logger)
	if err != nil {
		t.Fatalf("NewSecureStoreAge: %v", err)
	}

	if _, err := ss.Latest(context.Background(), ScopeApplication); err == nil {
		t.Fatal("expected an error for a scope with no stored content")
	}
}

func TestSecureStoreAgeRejectsBadKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key.txt")
	if err := os.WriteFile(path, []byte("not an age key"), 0600); err != nil {
		t.Fatalf("write bad key file: %v", err)
	}
	store := newFakeConfigStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ss, err := NewSecureStoreAge(store, path, logger)
	if err != nil {
		t.Fatalf("NewSecureStoreAge: %v", err)
	}
	if err := ss.Save(context.Background(), ScopeApplication, []byte("x"), "toml", ""); err == nil {
		t.Fatal("expected Save to fail with an invalid key file")
	}
}
