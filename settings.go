package compositor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultBlurPasses is the number of box passes one blur runs, three
// per axis. Three box passes approximate a Gaussian closely.
const defaultBlurPasses = 6

// Settings configures a Renderer. The zero value is not usable; start
// from DefaultSettings or load from YAML.
type Settings struct {
	// DefaultTextSize in logical pixels, handed to text runs that do
	// not specify one.
	DefaultTextSize float32 `yaml:"default_text_size"`

	// Antialiasing toggles multisampling in the mesh pipeline.
	Antialiasing bool `yaml:"antialiasing"`

	// BlurPasses overrides the number of box passes per blur. Must be
	// even (passes alternate axes) and at least 2. Lower values trade
	// quality for fill rate on weak GPUs.
	BlurPasses int `yaml:"blur_passes"`

	// PresentMode is a hint for the host's swapchain configuration:
	// "vsync" or "immediate". The compositor itself never touches the
	// swapchain.
	PresentMode string `yaml:"present_mode"`
}

// DefaultSettings returns the settings a desktop target wants.
func DefaultSettings() Settings {
	return Settings{
		DefaultTextSize: 16,
		Antialiasing:    true,
		BlurPasses:      defaultBlurPasses,
		PresentMode:     "vsync",
	}
}

// ParseSettings decodes YAML into Settings, filling unset fields from
// DefaultSettings and validating the result.
func ParseSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("compositor: parsing settings: %w", err)
	}
	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LoadSettings reads and parses a YAML settings file.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("compositor: reading settings: %w", err)
	}
	return ParseSettings(data)
}

func (s Settings) validate() error {
	if s.DefaultTextSize <= 0 {
		return fmt.Errorf("compositor: default_text_size must be positive, got %v", s.DefaultTextSize)
	}
	if s.BlurPasses < 2 || s.BlurPasses%2 != 0 {
		return fmt.Errorf("compositor: blur_passes must be even and at least 2, got %d", s.BlurPasses)
	}
	switch s.PresentMode {
	case "vsync", "immediate":
	default:
		return fmt.Errorf("compositor: unknown present_mode %q", s.PresentMode)
	}
	return nil
}
