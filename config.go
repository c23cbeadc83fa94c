package juniper

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the engine settings read by NewRunner.
type Config struct {
	// Debug enables per-frame stats logging at debug level.
	Debug bool `json:"debug" yaml:"debug"`
	// LogLevel is a zap level name: debug, info, warn, or error.
	LogLevel string `json:"logLevel" yaml:"logLevel"`
	// Partitioner selects the visibility partitioner: "all" or "frustum".
	Partitioner string `json:"partitioner" yaml:"partitioner"`
	// TransparentFrom is the first queue key sorted back to front.
	TransparentFrom int `json:"transparentFrom" yaml:"transparentFrom"`
	// TPFSmoothing is the number of frames averaged into the reported tpf.
	TPFSmoothing int `json:"tpfSmoothing" yaml:"tpfSmoothing"`
	// MaxTPF caps the time step handed to systems, in seconds.
	MaxTPF float64 `json:"maxTPF" yaml:"maxTPF"`
	// SafeMode recovers panics raised by systems.
	SafeMode bool `json:"safeMode" yaml:"safeMode"`
	// ClearColor fills the screen before each frame.
	ClearColor Color `json:"clearColor" yaml:"clearColor"`
	// TextureUnits caps the texture units tracked; zero uses the device's.
	TextureUnits int `json:"textureUnits" yaml:"textureUnits"`
}

// DefaultConfig returns the settings used when no file is given.
func DefaultConfig() Config {
	return Config{
		LogLevel:        "info",
		Partitioner:     "all",
		TransparentFrom: QueueTransparent,
		TPFSmoothing:    10,
		MaxTPF:          0.5,
		SafeMode:        true,
		ClearColor:      ColorBlack,
	}
}

// LoadConfig parses YAML over DefaultConfig. Keys absent from data keep
// their defaults.
func LoadConfig(data []byte) (Config, error) {
	return LoadConfigReader(bytes.NewReader(data))
}

// LoadConfigReader parses YAML from r over DefaultConfig.
func LoadConfigReader(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("juniper: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFile reads and parses the YAML file at path.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("juniper: open config: %w", err)
	}
	defer f.Close()
	return LoadConfigReader(f)
}

// Validate reports settings that cannot be used.
func (c Config) Validate() error {
	switch c.Partitioner {
	case "", "all", "frustum":
	default:
		return fmt.Errorf("juniper: unknown partitioner %q", c.Partitioner)
	}
	if c.TPFSmoothing < 0 {
		return fmt.Errorf("juniper: tpfSmoothing must not be negative, got %d", c.TPFSmoothing)
	}
	if c.MaxTPF < 0 {
		return fmt.Errorf("juniper: maxTPF must not be negative, got %g", c.MaxTPF)
	}
	if c.TextureUnits < 0 {
		return fmt.Errorf("juniper: textureUnits must not be negative, got %d", c.TextureUnits)
	}
	return nil
}
