// Package config provides configuration loading and management for cryosim.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cryosim/internal/models"
	"cryosim/pkg/detector"
	"cryosim/pkg/formfactor"
	"cryosim/pkg/pose"
	"cryosim/pkg/scattering"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores specifies how many CPU cores to use for parallel processing
		NumCores int `yaml:"numCores"`
	} `yaml:"processing"`

	// Density grid parameters
	Density struct {
		// VoxelsPerSide is the edge length of the cubic grid in voxels
		VoxelsPerSide int `yaml:"voxelsPerSide"`

		// VoxelSize is the lattice spacing in Angstroms
		VoxelSize float64 `yaml:"voxelSize"`

		// FormFactorTable optionally names a YAML table merged over the built-in one
		FormFactorTable string `yaml:"formFactorTable"`

		// SkipHydrogens drops hydrogen atoms when reading the structure
		SkipHydrogens bool `yaml:"skipHydrogens"`
	} `yaml:"density"`

	// Imaging plane parameters
	Imaging struct {
		Shape     [2]int  `yaml:"shape,flow"`
		PixelSize float64 `yaml:"pixelSize"`
		PadScale  float64 `yaml:"padScale"`
	} `yaml:"imaging"`

	// Scattering parameters
	Scattering struct {
		// Method is one of nufft, gaussian, fourier-slice or binning
		Method string  `yaml:"method"`
		Eps    float64 `yaml:"eps"`
		Scale  float64 `yaml:"scale"`
		Order  int     `yaml:"order"`

		// Downsample resamples the padded image instead of cropping it
		Downsample bool `yaml:"downsample"`
	} `yaml:"scattering"`

	// Pose is used when Views is empty
	Pose  pose.EulerAnglePose   `yaml:"pose"`
	Views []pose.EulerAnglePose `yaml:"views,omitempty"`

	// Detector parameters
	Detector struct {
		// Kind is one of null, counting or white
		Kind      string  `yaml:"kind"`
		PixelSize float64 `yaml:"pixelSize"`
		Method    string  `yaml:"method"`
		LambdaD   float64 `yaml:"lambdaD"`
		Seed      uint64  `yaml:"seed"`
	} `yaml:"detector"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// SaveDensitySlices writes z slices of the density grid as TIFF
		SaveDensitySlices bool   `yaml:"saveDensitySlices"`
		DensitySlicesDir  string `yaml:"densitySlicesDir"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU() // Use all available cores by default

	cfg.Density.VoxelsPerSide = 64
	cfg.Density.VoxelSize = 1.0

	cfg.Imaging.Shape = [2]int{64, 64}
	cfg.Imaging.PixelSize = 1.0
	cfg.Imaging.PadScale = 1.5

	cfg.Scattering.Method = scattering.MethodNufft.String()
	cfg.Scattering.Eps = 1e-6
	cfg.Scattering.Scale = 1.0 / 3
	cfg.Scattering.Order = 1

	cfg.Detector.Kind = "null"
	cfg.Detector.PixelSize = 1.0
	cfg.Detector.Method = detector.Lanczos5.String()
	cfg.Detector.LambdaD = 1.0

	cfg.Output.DensitySlicesDir = "density_slices"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}

// Validate checks every section and reports the first problem found.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{models.ErrUnsupportedConfiguration}, args...)...)
	}
	switch {
	case c.Density.VoxelsPerSide <= 0:
		return invalid("density.voxelsPerSide must be positive, got %d", c.Density.VoxelsPerSide)
	case !(c.Density.VoxelSize > 0):
		return invalid("density.voxelSize must be positive, got %g", c.Density.VoxelSize)
	case c.Imaging.Shape[0] <= 0 || c.Imaging.Shape[1] <= 0:
		return invalid("imaging.shape must be positive, got %v", c.Imaging.Shape)
	case !(c.Imaging.PixelSize > 0):
		return invalid("imaging.pixelSize must be positive, got %g", c.Imaging.PixelSize)
	case !(c.Imaging.PadScale >= 1):
		return invalid("imaging.padScale must be at least 1, got %g", c.Imaging.PadScale)
	case !(c.Scattering.Eps > 0 && c.Scattering.Eps < 1):
		return invalid("scattering.eps must lie in (0, 1), got %g", c.Scattering.Eps)
	case !(c.Scattering.Scale > 0):
		return invalid("scattering.scale must be positive, got %g", c.Scattering.Scale)
	case !(c.Detector.PixelSize > 0):
		return invalid("detector.pixelSize must be positive, got %g", c.Detector.PixelSize)
	case c.Detector.LambdaD < 0:
		return invalid("detector.lambdaD must not be negative, got %g", c.Detector.LambdaD)
	}
	if _, err := scattering.ParseMethod(c.Scattering.Method); err != nil {
		return err
	}
	if _, err := detector.ParseInterpolation(c.Detector.Method); err != nil {
		return err
	}
	if _, err := c.BuildDetector(); err != nil {
		return err
	}
	return nil
}

// BuildImageConfig creates the imaging plane of the configuration.
func (c *Config) BuildImageConfig() (*scattering.ImageConfig, error) {
	return scattering.NewImageConfig(c.Imaging.Shape, c.Imaging.PixelSize, c.Imaging.PadScale)
}

// BuildStrategy creates the configured scattering strategy for img.
func (c *Config) BuildStrategy(img *scattering.ImageConfig) (scattering.Strategy, error) {
	method, err := scattering.ParseMethod(c.Scattering.Method)
	if err != nil {
		return nil, err
	}
	return scattering.New(method, img,
		scattering.WithEps(c.Scattering.Eps),
		scattering.WithScale(c.Scattering.Scale),
		scattering.WithOrder(c.Scattering.Order),
		scattering.WithWorkers(c.Processing.NumCores),
	)
}

// BuildDetector creates the configured detector.
func (c *Config) BuildDetector() (detector.Detector, error) {
	method, err := detector.ParseInterpolation(c.Detector.Method)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(c.Detector.Kind)) {
	case "", "null":
		return detector.NullDetector{}, nil
	case "counting":
		return detector.CountingDetector{PixelSize: c.Detector.PixelSize, Method: method}, nil
	case "white":
		return detector.NewWhiteDetector(c.Detector.PixelSize, method, c.Detector.LambdaD), nil
	default:
		return nil, fmt.Errorf("%w: unknown detector kind %q", models.ErrUnsupportedConfiguration, c.Detector.Kind)
	}
}

// Noisy reports whether the configured detector adds noise.
func (c *Config) Noisy() bool {
	return strings.EqualFold(strings.TrimSpace(c.Detector.Kind), "white")
}

// Poses returns Views, or the single Pose when no views are listed.
func (c *Config) Poses() []pose.EulerAnglePose {
	if len(c.Views) > 0 {
		return c.Views
	}
	return []pose.EulerAnglePose{c.Pose}
}

// LoadFormFactors returns the built-in table, merged with the configured
// table file when one is set.
func (c *Config) LoadFormFactors() (*formfactor.Table, error) {
	if c.Density.FormFactorTable == "" {
		return formfactor.Default(), nil
	}
	return formfactor.LoadYAML(c.Density.FormFactorTable)
}
