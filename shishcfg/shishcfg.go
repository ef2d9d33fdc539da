// Package shishcfg holds the engine's tunable defaults: the chunk size
// used by async pipe I/O, the /dev/fd path root used to resolve process
// substitutions, and the interval at which cleanup logs a warning while
// it is still waiting for killed processes to be reaped.
// Values can be loaded from a YAML file with gopkg.in/yaml.v2, though
// most callers simply use Default().
package shishcfg

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds settings controlling the engine's runtime behaviour.
type Config struct {
	// ChunkSize is the read buffer size, in bytes, Out uses when
	// capturing stdout. Data-injection writes and the string chunker
	// always use aio.DefaultChunkSize, whatever this is set to. Defaults
	// to 65536 (64 KiB), matching the default pipe buffer size.
	ChunkSize int `yaml:"chunk-size"`

	// DevFdRoot is the directory used to name process-substitution
	// paths, e.g. "/dev/fd" yielding "/dev/fd/N". Linux/BSD only.
	DevFdRoot string `yaml:"dev-fd-root"`

	// KillGrace bounds how long cleanup waits for a SIGKILLed process
	// to be reaped before logging a warning (it always waits to
	// completion; this only affects diagnostic logging cadence).
	KillGrace time.Duration `yaml:"kill-grace"`
}

// Default returns the engine's built-in defaults.
func Default() Config {
	return Config{
		ChunkSize: 65536,
		DevFdRoot: "/dev/fd",
		KillGrace: 5 * time.Second,
	}
}

// Load reads a YAML-encoded Config from path, applying Default() for any
// field left at its zero value.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 65536
	}

	if cfg.DevFdRoot == "" {
		cfg.DevFdRoot = "/dev/fd"
	}

	if cfg.KillGrace == 0 {
		cfg.KillGrace = 5 * time.Second
	}

	return cfg, nil
}
