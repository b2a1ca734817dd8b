package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/melih-ucgun/botsnap/internal/consts"
	"gopkg.in/yaml.v3"
)

// Config is the full botsnap configuration as read from YAML.
type Config struct {
	DataSet   DataSetConfig   `yaml:"dataset"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Retention RetentionConfig `yaml:"retention"`
	Writer    WriterConfig    `yaml:"writer"`
	Lock      LockConfig      `yaml:"lock"`
	Journal   JournalConfig   `yaml:"journal"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Remote    RemoteConfig    `yaml:"remote"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Hooks     []HookConfig    `yaml:"hooks,omitempty"`
}

// DataSetConfig lists the files making up the bot's persistent state.
// File paths are relative to Root.
type DataSetConfig struct {
	Root  string       `yaml:"root"`
	Files []FileConfig `yaml:"files"`
}

type FileConfig struct {
	Path string `yaml:"path"`
	Mode string `yaml:"mode,omitempty"` // octal, e.g. "0600"; empty keeps the archived mode
}

type ArchiveConfig struct {
	Dir         string `yaml:"dir"`
	Compression string `yaml:"compression"` // "gzip", "zstd"
	Level       int    `yaml:"level"`
}

type RetentionConfig struct {
	Keep           int `yaml:"keep"`
	KeepPreRestore int `yaml:"keepPreRestore"`
}

type WriterConfig struct {
	Kind           string        `yaml:"kind"` // docker, podman, systemd, openrc, sysvinit, none
	Name           string        `yaml:"name"`
	StopTimeout    time.Duration `yaml:"stopTimeout"`
	QuiesceTimeout time.Duration `yaml:"quiesceTimeout"`
	PollInterval   time.Duration `yaml:"pollInterval"`
}

type LockConfig struct {
	Path    string        `yaml:"path,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
}

type JournalConfig struct {
	Path string `yaml:"path,omitempty"`
	Size int    `yaml:"size"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

type RemoteConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Protocol   string        `yaml:"protocol"` // "sftp" or "dir" for a mounted path
	Host       string        `yaml:"host,omitempty"`
	Port       int           `yaml:"port,omitempty"`
	User       string        `yaml:"user,omitempty"`
	KeyPath    string        `yaml:"keyPath,omitempty"`
	Password   string        `yaml:"password,omitempty"`
	KnownHosts string        `yaml:"knownHosts,omitempty"`
	Dir        string        `yaml:"dir,omitempty"`
	Keep       int           `yaml:"keep,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

// HookConfig runs a templated shell command after an operation when the
// When expression holds.
type HookConfig struct {
	Name string   `yaml:"name"`
	On   []string `yaml:"on"`
	When string   `yaml:"when,omitempty"`
	Run  string   `yaml:"run"`
}

// Default returns the configuration matching the stock bot deployment.
func Default() *Config {
	return &Config{
		DataSet: DataSetConfig{
			Root:  ".",
			Files: DefaultFiles(),
		},
		Archive: ArchiveConfig{
			Dir:         consts.DefaultArchiveDir,
			Compression: consts.CompressionGzip,
			Level:       6,
		},
		Retention: RetentionConfig{
			Keep:           consts.DefaultKeepCount,
			KeepPreRestore: consts.DefaultKeepCount,
		},
		Writer: WriterConfig{
			Kind:           "docker",
			Name:           consts.DefaultWriterName,
			StopTimeout:    30 * time.Second,
			QuiesceTimeout: 60 * time.Second,
			PollInterval:   500 * time.Millisecond,
		},
		Lock: LockConfig{
			Timeout: 30 * time.Second,
		},
		Journal: JournalConfig{
			Size: consts.DefaultJournalSize,
		},
		Remote: RemoteConfig{
			Protocol: "sftp",
			Port:     22,
			Keep:     consts.DefaultKeepCount,
			Timeout:  15 * time.Second,
		},
		Schedule: ScheduleConfig{
			Cron: "0 3 * * *",
		},
	}
}

// DefaultFiles is the database, configuration and log file of the bot.
func DefaultFiles() []FileConfig {
	return []FileConfig{
		{Path: consts.DefaultDatabaseFile, Mode: fmt.Sprintf("%04o", consts.DatabaseMode)},
		{Path: consts.DefaultConfigEnv, Mode: fmt.Sprintf("%04o", consts.ConfigMode)},
		{Path: consts.DefaultLogFile},
	}
}

// FileMode parses the octal Mode. ok is false when no mode is configured.
func (f FileConfig) FileMode() (mode os.FileMode, ok bool, err error) {
	if f.Mode == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(f.Mode, 8, 32)
	if err != nil {
		return 0, false, fmt.Errorf("invalid mode %q for %s: %w", f.Mode, f.Path, err)
	}
	if v > 0o777 {
		return 0, false, fmt.Errorf("mode %q for %s exceeds 0777", f.Mode, f.Path)
	}
	return os.FileMode(v), true, nil
}

// LockPath returns the configured lock file or the default one inside the
// archive directory.
func (c *Config) LockPath() string {
	if c.Lock.Path != "" {
		return c.Lock.Path
	}
	return filepath.Join(c.Archive.Dir, consts.LockFileName)
}

// JournalPath returns the configured journal file or the default one
// inside the archive directory.
func (c *Config) JournalPath() string {
	if c.Journal.Path != "" {
		return c.Journal.Path
	}
	return filepath.Join(c.Archive.Dir, consts.JournalFileName)
}

// Marshal renders the configuration as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// WriteConfig writes cfg as YAML to path. It refuses to overwrite an
// existing file unless force is set.
func WriteConfig(path string, cfg *Config, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}

	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("yaml marshal failed: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0o600)
}
