// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone so no code path picks up the host zone.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Resolve <VAR>_FILE pointers for secret variables through the
//     SecretProvider, injecting the values back into the environment.
//  4. Use envconfig to process struct tags and populate the Config struct.
//  5. Populate BuildInfo from linker-injected variables.
//  6. Validate the struct using go-playground/validator.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig to aid debugging.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// filePointerSuffix marks a variable holding the path of a secret file.
// OPENWEATHER_API_KEY_FILE=/run/secrets/owm fills OPENWEATHER_API_KEY.
const filePointerSuffix = "_FILE"

// secretEnvVars lists the variables that may be supplied through a _FILE
// pointer. Only SecretString fields belong here.
var secretEnvVars = []string{
	"OPENWEATHER_API_KEY",
}

// secretResolveTimeout bounds the whole secret resolution step.
const secretResolveTimeout = 10 * time.Second

type envLookup func(key string) (string, bool)

type envSet func(key, value string) error

// loaderDeps holds the injectable dependencies for the loader, enabling
// testing without mutating global state.
type loaderDeps struct {
	lookupEnv envLookup
	setEnv    envSet
	dotenv    func() error
}

// defaultDeps returns the standard OS-backed dependencies.
func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		setEnv:    os.Setenv,
		dotenv:    func() error { return godotenv.Load() },
	}
}

// LoadConfig loads and validates the configuration. provider resolves
// *_FILE secret pointers; nil selects the filesystem provider.
func LoadConfig(provider SecretProvider) (*Config, error) {
	return loadConfigWithDeps(provider, defaultDeps())
}

func loadConfigWithDeps(provider SecretProvider, deps loaderDeps) (*Config, error) {
	time.Local = time.UTC

	// godotenv does not override variables already present in the
	// environment, and a missing .env file is not an error worth reporting.
	_ = deps.dotenv()

	if provider == nil {
		provider = NewFileSecretProvider()
	}
	if err := resolveSecretFiles(provider, deps); err != nil {
		return nil, err
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, classifyValidation(err)
	}

	return &cfg, nil
}

// classifyValidation reports missing required values as ErrMissingEnv, so a
// missing API key reads as such in startup logs.
func classifyValidation(err error) *ConfigError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		var missing []string
		for _, fe := range verrs {
			if fe.Tag() == "required" && isZero(fe.Value()) {
				missing = append(missing, fe.Namespace())
			}
		}
		if len(missing) == len(verrs) && len(missing) > 0 {
			return &ConfigError{
				Type:    ErrMissingEnv,
				Message: "required configuration missing: " + strings.Join(missing, ", "),
				Err:     err,
			}
		}
	}
	return &ConfigError{
		Type:    ErrValidation,
		Message: "configuration validation failed",
		Err:     err,
	}
}

func isZero(v any) bool {
	switch x := v.(type) {
	case string:
		return x == ""
	case SecretString:
		return x == ""
	case nil:
		return true
	}
	return false
}

// resolveSecretFiles reads the file named by <VAR>_FILE for every secret
// variable and sets <VAR>. A variable already present in the environment
// wins over its pointer.
func resolveSecretFiles(provider SecretProvider, deps loaderDeps) error {
	type binding struct {
		target string
		path   string
	}

	var bindings []binding
	for _, target := range secretEnvVars {
		if _, exists := deps.lookupEnv(target); exists {
			continue
		}
		path, ok := deps.lookupEnv(target + filePointerSuffix)
		if !ok || path == "" {
			continue
		}
		bindings = append(bindings, binding{target: target, path: path})
	}

	if len(bindings) == 0 {
		return nil
	}
	paths := make([]string, 0, len(bindings))
	for _, b := range bindings {
		paths = append(paths, b.path)
	}

	ctx, cancel := context.WithTimeout(context.Background(), secretResolveTimeout)
	defer cancel()

	resolved, err := provider.GetParametersBatch(ctx, paths)
	if err != nil {
		return &ConfigError{
			Type:    ErrSecretResolution,
			Message: fmt.Sprintf("failed to resolve %d secret files", len(paths)),
			Err:     err,
		}
	}

	var missing []string
	for _, b := range bindings {
		value, ok := resolved[b.path]
		if !ok {
			missing = append(missing, b.target)
			continue
		}
		if err := deps.setEnv(b.target, value); err != nil {
			return &ConfigError{
				Type:    ErrSecretResolution,
				Message: fmt.Sprintf("failed to set resolved value for %s", b.target),
				Err:     err,
			}
		}
	}
	if len(missing) > 0 {
		return &ConfigError{
			Type:    ErrSecretResolution,
			Message: fmt.Sprintf("secret files not found for: %s", strings.Join(missing, ", ")),
		}
	}

	return nil
}
