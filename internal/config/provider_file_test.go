package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSecretProviderReadsAndTrims(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "owm")
	if err := os.WriteFile(path, []byte("key-123\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	got, err := NewFileSecretProvider().GetParametersBatch(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("GetParametersBatch returned error: %v", err)
	}
	if got[path] != "key-123" {
		t.Errorf("value = %q, want key-123", got[path])
	}
}

func TestFileSecretProviderSkipsMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent")

	got, err := NewFileSecretProvider().GetParametersBatch(context.Background(), []string{missing})
	if err != nil {
		t.Fatalf("GetParametersBatch returned error: %v", err)
	}
	if _, ok := got[missing]; ok {
		t.Error("missing file should be omitted from the result")
	}
}

func TestFileSecretProviderReadError(t *testing.T) {
	p := &FileSecretProvider{readFile: func(string) ([]byte, error) {
		return nil, fs.ErrPermission
	}}

	_, err := p.GetParametersBatch(context.Background(), []string{"/run/secrets/owm"})
	if !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestFileSecretProviderCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &FileSecretProvider{readFile: func(string) ([]byte, error) {
		t.Fatal("readFile should not be called after cancellation")
		return nil, nil
	}}

	if _, err := p.GetParametersBatch(ctx, []string{"/run/secrets/owm"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
