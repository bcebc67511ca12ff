package cosched

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultSlots is the pool size used when none is configured.
	DefaultSlots = 8

	// DefaultMaxLocals is the number of locals each coroutine can hold
	// when none is configured.
	DefaultMaxLocals = 8
)

// ErrInvalidConfig is returned for pool configurations that cannot be
// used.
var ErrInvalidConfig = errors.New("cosched: invalid config")

// Config sizes a Pool. Both sizes are fixed for the lifetime of the
// pool.
type Config struct {
	// Slots is the number of coroutines that can be active at once.
	Slots int `toml:"slots" yaml:"slots"`

	// MaxLocals is the number of locals each coroutine can declare.
	MaxLocals int `toml:"max_locals" yaml:"max_locals"`
}

// DefaultConfig returns the configuration used by New without options.
func DefaultConfig() Config {
	return Config{
		Slots:     DefaultSlots,
		MaxLocals: DefaultMaxLocals,
	}
}

func (c Config) Validate() error {
	if c.Slots <= 0 {
		return fmt.Errorf("%w: slots must be positive, got %d", ErrInvalidConfig, c.Slots)
	}
	if c.MaxLocals < 0 {
		return fmt.Errorf("%w: max_locals must not be negative, got %d", ErrInvalidConfig, c.MaxLocals)
	}
	return nil
}

// LoadConfig reads a Config from a TOML or YAML file, picked by the file
// extension. Keys missing from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

// ParseConfig decodes data as format, which is "toml", "yaml" or "yml".
func ParseConfig(data []byte, format string) (Config, error) {
	cfg := DefaultConfig()

	switch strings.ToLower(format) {
	case "toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("%w: unknown config format %q", ErrInvalidConfig, format)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type options struct {
	config Config
	clock  Clock
	log    *slog.Logger
}

// Option configures a Pool.
type Option func(*options)

// WithConfig replaces the whole pool configuration.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

func WithSlots(n int) Option {
	return func(o *options) { o.config.Slots = n }
}

func WithMaxLocals(n int) Option {
	return func(o *options) { o.config.MaxLocals = n }
}

// WithClock sets the clock used by Update, Wait, Suspend and Resume.
// The default is SystemClock.
func WithClock(clock Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithLogger sets the logger for pool trace events. Lifecycle events
// are logged at debug level and pool exhaustion at error level. The
// default discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}
