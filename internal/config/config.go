// Package config loads the worker's runtime profile: which debuggee kind
// to drive, the scripted IPC queue paths, and the evaluate/poll timeouts,
// following the same viper-based layering (flags > env > file > defaults)
// the rest of this codebase's CLI uses.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Profile is the worker's runtime configuration.
type Profile struct {
	// DebuggeeKind is either "native" or "scripted".
	DebuggeeKind string `mapstructure:"debuggee_kind"`
	// WorkingDir seeds the fake-address codec's relative-path prefix for
	// scripted debuggees launched without an Attached handshake yet.
	WorkingDir string `mapstructure:"working_dir"`
	// OutboundQueue/InboundQueue are the scripted IPC FIFO paths.
	OutboundQueue string `mapstructure:"outbound_queue"`
	InboundQueue  string `mapstructure:"inbound_queue"`
	// PollInterval is loaded from config (default 50ms). The engine does not
	// read it: the poll loop always waits a fixed 50ms per tick.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// EvaluateTimeout is loaded from config (default 1s). The engine does not
	// read it: EvaluateExpression always uses a fixed 1s cap.
	EvaluateTimeout time.Duration `mapstructure:"evaluate_timeout"`
}

// DefaultProfile returns the profile used when no config file, env var, or
// flag overrides a field.
func DefaultProfile() Profile {
	return Profile{
		DebuggeeKind:    "scripted",
		OutboundQueue:   "NPLDebug",
		InboundQueue:    "VSDebug",
		PollInterval:    50 * time.Millisecond,
		EvaluateTimeout: time.Second,
	}
}

// Load reads a worker profile from fs at path (a YAML file), applying
// environment-variable overrides prefixed NPLDBGWORKER_. A nil fs uses the
// real filesystem; tests pass an afero.MemMapFs for a hermetic, in-memory
// config file.
func Load(fs afero.Fs, path string) (Profile, error) {
	v := viper.New()
	if fs != nil {
		v.SetFs(fs)
	}

	def := DefaultProfile()
	v.SetDefault("debuggee_kind", def.DebuggeeKind)
	v.SetDefault("outbound_queue", def.OutboundQueue)
	v.SetDefault("inbound_queue", def.InboundQueue)
	v.SetDefault("poll_interval", def.PollInterval)
	v.SetDefault("evaluate_timeout", def.EvaluateTimeout)

	v.SetEnvPrefix("npldbgworker")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Profile{}, fmt.Errorf("config: read %q: %w", path, err)
			}
		}
	}

	var p Profile
	if err := v.Unmarshal(&p); err != nil {
		return Profile{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return p, nil
}
