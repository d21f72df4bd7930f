package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "TRIPSENSE_"

	// PathEnvVar names a config file when no path is given explicitly.
	PathEnvVar = EnvPrefix + "CONFIG"
)

// LocalFile is looked up in the working directory when no path is given.
const LocalFile = "tripsense.yaml"

// Load builds the configuration from defaults, the config file and the
// environment. An explicit path, or one named by TRIPSENSE_CONFIG, must
// exist; otherwise ./tripsense.yaml and ~/.tripsense/config.yaml are used
// when present.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	resolved, err := resolvePath(path)
	if err != nil {
		return nil, err
	}
	if resolved != "" {
		if err := loadFile(k, resolved); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, &InvalidConfigError{
			Path:    resolved,
			Message: err.Error(),
			Hint:    "Check value types, durations are written like 30s or 2h",
		}
	}

	if err := cfg.Validate(); err != nil {
		if invalid, ok := err.(*InvalidConfigError); ok {
			invalid.Path = resolved
		}
		return nil, err
	}
	return cfg, nil
}

// resolvePath picks the config file to read, or "" for none.
func resolvePath(path string) (string, error) {
	explicit := path
	if explicit == "" {
		explicit = os.Getenv(PathEnvVar)
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", &ConfigNotFoundError{
					Path: explicit,
					Hint: "Run 'tripsense config init' to create one, or drop --config to use defaults",
				}
			}
			return "", fmt.Errorf("failed to access config: %w", err)
		}
		return explicit, nil
	}

	candidates := []string{LocalFile}
	if home, err := DefaultPath(); err == nil {
		candidates = append(candidates, home)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

func loadFile(k *koanf.Koanf, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return &PermissionError{
				Path:    path,
				Op:      "read",
				Fix:     getReadPermissionFix(path),
				Details: getPermissionDetails(path),
			}
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	f.Close()

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return &InvalidConfigError{
			Path:    path,
			Message: fmt.Sprintf("YAML parse error: %v", err),
			Hint:    "Restore from .bak file if available",
		}
	}
	return nil
}

// envKey maps TRIPSENSE_NLP__EMBEDDING__PROVIDER to nlp.embedding.provider.
// TRIPSENSE_CONFIG is not a setting and is skipped.
func envKey(name string) string {
	if name == PathEnvVar {
		return ""
	}
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// getReadPermissionFix returns platform-specific fix command
func getReadPermissionFix(path string) string {
	switch runtime.GOOS {
	case "windows":
		return fmt.Sprintf("Right-click %s → Properties → Security → Edit permissions", path)
	default:
		return fmt.Sprintf("Run: chmod 644 %s", path)
	}
}

// getPermissionDetails checks file ownership and permissions
func getPermissionDetails(path string) string {
	if runtime.GOOS == "windows" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Current permissions: %04o", info.Mode().Perm())
}
