package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/melih-ucgun/botsnap/internal/consts"
)

type loadOptions struct {
	envFile      string
	requireFile  bool
	envPrefix    string
	skipValidate bool
}

// Option configures LoadConfig.
type Option func(*loadOptions)

// WithEnvFile loads a dotenv file into the process environment before the
// environment overrides are applied. Variables already set win.
func WithEnvFile(path string) Option {
	return func(o *loadOptions) { o.envFile = path }
}

// WithRequiredFile makes a missing config file an error instead of
// falling back to defaults.
func WithRequiredFile() Option {
	return func(o *loadOptions) { o.requireFile = true }
}

// WithEnvPrefix overrides the BOTSNAP_ environment prefix.
func WithEnvPrefix(prefix string) Option {
	return func(o *loadOptions) { o.envPrefix = prefix }
}

// WithoutValidation skips Validate, used by "config show" to print broken
// configurations.
func WithoutValidation() Option {
	return func(o *loadOptions) { o.skipValidate = true }
}

// LoadConfig builds the configuration from, in increasing priority:
// defaults, the YAML file at path, then BOTSNAP_* environment variables.
// BOTSNAP_RETENTION_KEEP=5 maps to retention.keep; keys match
// case-insensitively so BOTSNAP_RETENTION_KEEPPRERESTORE also works.
func LoadConfig(path string, opts ...Option) (*Config, error) {
	o := loadOptions{envPrefix: consts.EnvPrefix}
	for _, opt := range opts {
		opt(&o)
	}

	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return nil, fmt.Errorf("loading env file %s: %w", o.envFile, err)
		}
	}

	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load file %s: %w", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) || o.requireFile {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Env keys arrive upper case; map them back to the camelCase yaml keys
	// so they override the file's values instead of sitting next to them.
	canonical := make(map[string]string)
	collectKeys(reflect.TypeOf(Config{}), "", canonical)
	envTransformer := func(s string) string {
		s = strings.TrimPrefix(s, o.envPrefix)
		s = strings.ReplaceAll(strings.ToLower(s), "_", ".")
		if key, ok := canonical[s]; ok {
			return key
		}
		return s
	}
	if err := k.Load(env.Provider(o.envPrefix, ".", envTransformer), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	// Slices are merged index by index when decoding over a populated
	// struct, so the default file list is only applied when none is given.
	cfg.DataSet.Files = nil
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.DataSet.Files) == 0 {
		cfg.DataSet.Files = DefaultFiles()
	}

	if o.skipValidate {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// collectKeys records every yaml key path of t, indexed by its lower case
// form.
func collectKeys(t reflect.Type, prefix string, out map[string]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		out[strings.ToLower(key)] = key
		if f.Type.Kind() == reflect.Struct {
			collectKeys(f.Type, key, out)
		}
	}
}
