package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/melih-ucgun/botsnap/internal/consts"
)

var writerKinds = []string{"docker", "podman", "systemd", "openrc", "sysvinit", "none"}

// HookEvents are the values accepted in HookConfig.On.
var HookEvents = []string{"create", "restore", "prune", "failure"}

// Validate checks the configuration for values the snapshot manager cannot
// work with. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.DataSet.Root == "" {
		errs = append(errs, errors.New("dataset.root is required"))
	}
	if len(c.DataSet.Files) == 0 {
		errs = append(errs, errors.New("dataset.files must list at least one file"))
	}
	seen := make(map[string]bool)
	for _, f := range c.DataSet.Files {
		clean := filepath.Clean(f.Path)
		if f.Path == "" || !filepath.IsLocal(clean) {
			errs = append(errs, fmt.Errorf("dataset file %q must be a relative path inside the root", f.Path))
			continue
		}
		if seen[clean] {
			errs = append(errs, fmt.Errorf("dataset file %q listed twice", f.Path))
		}
		seen[clean] = true
		if _, _, err := f.FileMode(); err != nil {
			errs = append(errs, err)
		}
	}

	if c.Archive.Dir == "" {
		errs = append(errs, errors.New("archive.dir is required"))
	}
	switch c.Archive.Compression {
	case consts.CompressionGzip, consts.CompressionZstd:
	default:
		errs = append(errs, fmt.Errorf("archive.compression must be %q or %q, got %q",
			consts.CompressionGzip, consts.CompressionZstd, c.Archive.Compression))
	}

	if c.Retention.Keep < 1 {
		errs = append(errs, fmt.Errorf("retention.keep must be at least 1, got %d", c.Retention.Keep))
	}
	if c.Retention.KeepPreRestore < 1 {
		errs = append(errs, fmt.Errorf("retention.keepPreRestore must be at least 1, got %d", c.Retention.KeepPreRestore))
	}

	if !slices.Contains(writerKinds, c.Writer.Kind) {
		errs = append(errs, fmt.Errorf("writer.kind must be one of %v, got %q", writerKinds, c.Writer.Kind))
	} else if c.Writer.Kind != "none" && c.Writer.Name == "" {
		errs = append(errs, fmt.Errorf("writer.name is required for writer kind %q", c.Writer.Kind))
	}
	if c.Writer.PollInterval <= 0 {
		errs = append(errs, errors.New("writer.pollInterval must be positive"))
	}
	if c.Writer.QuiesceTimeout <= 0 {
		errs = append(errs, errors.New("writer.quiesceTimeout must be positive"))
	}

	if c.Journal.Size < 1 {
		errs = append(errs, errors.New("journal.size must be at least 1"))
	}

	if c.Remote.Enabled {
		switch c.Remote.Protocol {
		case "sftp":
			if c.Remote.Host == "" {
				errs = append(errs, errors.New("remote.host is required for sftp mirrors"))
			}
			if c.Remote.User == "" {
				errs = append(errs, errors.New("remote.user is required for sftp mirrors"))
			}
			if c.Remote.KeyPath == "" && c.Remote.Password == "" {
				errs = append(errs, errors.New("remote.keyPath or remote.password is required for sftp mirrors"))
			}
		case "dir":
		default:
			errs = append(errs, fmt.Errorf("remote.protocol must be \"sftp\" or \"dir\", got %q", c.Remote.Protocol))
		}
		if c.Remote.Dir == "" {
			errs = append(errs, errors.New("remote.dir is required when remote is enabled"))
		}
		if c.Remote.Keep < 1 {
			errs = append(errs, errors.New("remote.keep must be at least 1"))
		}
	}

	for i, h := range c.Hooks {
		if h.Run == "" {
			errs = append(errs, fmt.Errorf("hooks[%d] (%s): run is required", i, h.Name))
		}
		for _, ev := range h.On {
			if !slices.Contains(HookEvents, ev) {
				errs = append(errs, fmt.Errorf("hooks[%d] (%s): unknown event %q", i, h.Name, ev))
			}
		}
	}

	return errors.Join(errs...)
}
