package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix namespaces environment overrides.
const EnvPrefix = "SELLERFIN_"

const maxConfigFileSize = 1024 * 1024 // 1MB

//go:embed defaults.yaml
var defaultsYAML []byte

// profileSections are finance sub-sections whose names contain
// underscores, so env keys need them matched before splitting.
var profileSections = []string{"owner_favored", "balanced", "buyer_favored"}

// Load builds the configuration from embedded defaults, the optional file
// at path, and the environment. An empty path skips the file layer; a
// non-empty path that does not exist is an error.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := loadFile(k, path); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Platform conventions (Heroku, Fly, Render) override everything.
	conventional := map[string]string{
		"PORT":         "server.port",
		"DATABASE_URL": "store.database_url",
		"REDIS_URL":    "store.redis_url",
	}
	for name, key := range conventional {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			if err := k.Set(key, v); err != nil {
				return nil, fmt.Errorf("failed to apply %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.Calculator(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".toml":
		parser = TOMLParser()
	default:
		return fmt.Errorf("%w: unsupported config file extension %q", ErrInvalid, filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if len(content) > maxConfigFileSize {
		return fmt.Errorf("%w: config file exceeds %d bytes", ErrInvalid, maxConfigFileSize)
	}

	if err := k.Load(rawbytes.Provider(content), parser); err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return nil
}

// envKey maps prefixed variables to config keys:
//
//	SELLERFIN_SERVER_PORT                         -> server.port
//	SELLERFIN_FINANCE_ANNUAL_INTEREST_RATE        -> finance.annual_interest_rate
//	SELLERFIN_FINANCE_OWNER_FAVORED_ENTRY_FEE_CAP -> finance.owner_favored.entry_fee_cap
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}

	if section == "finance" {
		for _, p := range profileSections {
			if rest, ok := strings.CutPrefix(field, p+"_"); ok {
				return section + "." + p + "." + rest
			}
		}
	}
	return section + "." + field
}

type tomlParser struct{}

// TOMLParser returns a koanf.Parser backed by BurntSushi/toml.
func TOMLParser() koanf.Parser {
	return tomlParser{}
}

func (tomlParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if _, err := toml.Decode(string(b), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (tomlParser) Marshal(m map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
