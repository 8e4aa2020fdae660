package config

import "context"

// SecretProvider resolves secret references to plaintext values. The loader
// uses it for *_FILE pointer variables; tests substitute their own.
type SecretProvider interface {
	// GetParametersBatch resolves every reference in keys. References that
	// cannot be found are omitted from the result; other failures are
	// returned as an error.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
