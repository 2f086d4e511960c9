package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial   SerialConfig   `yaml:"serial"`
	LoadCell LoadCellConfig `yaml:"load_cell"`
	Motor    MotorConfig    `yaml:"motor"`
	Logging  LoggingConfig  `yaml:"logging"`
	Plot     PlotConfig     `yaml:"plot"`
	Mock     MockConfig     `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	SettleDelay time.Duration `yaml:"settle_delay"` // Wait after open before flushing stale input
	ReadTimeout time.Duration `yaml:"read_timeout"` // Upper bound of a single poll for a response line
}

// LoadCellConfig contains the physical constants of the load cell and the
// HX711 amplifier used to turn raw ADC counts into weight.
type LoadCellConfig struct {
	RatedOutput   float64 `yaml:"rated_output"`   // Output at rated load (V/V)
	SupplyVoltage float64 `yaml:"supply_voltage"` // Amplifier analog supply (V)
	RatedLoad     float64 `yaml:"rated_load"`     // Rated load (weight units)
	Gain          float64 `yaml:"gain"`           // Amplifier PGA gain
	ADCBits       int     `yaml:"adc_bits"`       // ADC resolution
	Offset        float64 `yaml:"offset"`         // Calibration offset subtracted from every reading
}

// MotorConfig contains stepper motor mechanics.
type MotorConfig struct {
	StepsPerRev int `yaml:"steps_per_rev"`
}

// LoggingConfig contains log sink configuration.
type LoggingConfig struct {
	Directory     string `yaml:"directory"`
	EchoResponses bool   `yaml:"echo_responses"` // Print every controller line to stdout
}

// PlotConfig contains live plot and image export parameters.
type PlotConfig struct {
	RefreshInterval  time.Duration `yaml:"refresh_interval"`
	MaxDisplayPoints int           `yaml:"max_display_points"`
	ImageDPI         int           `yaml:"image_dpi"`
	ImageWidth       float64       `yaml:"image_width"`  // inches
	ImageHeight      float64       `yaml:"image_height"` // inches
}

// MockConfig contains simulated controller configuration.
type MockConfig struct {
	SampleRate     time.Duration `yaml:"sample_rate"`      // Interval between data lines
	BaseCount      float64       `yaml:"base_count"`       // Raw count at standstill
	CountsPerRPM   float64       `yaml:"counts_per_rpm"`   // Raw count change per rpm at steady state
	NoiseCounts    float64       `yaml:"noise_counts"`     // Amplitude of simulated ADC noise
	NoiseLineEvery int           `yaml:"noise_line_every"` // Emit a corrupted line every N lines (0 = never)
	ResponseLag    time.Duration `yaml:"response_lag"`     // Time constant of the load response
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "COM3", // Default for Windows, should be "/dev/ttyUSB0" on Linux/Mac
			BaudRate:    115200,
			SettleDelay: time.Second,
			ReadTimeout: 100 * time.Millisecond,
		},
		LoadCell: LoadCellConfig{
			RatedOutput:   0.0007,
			SupplyVoltage: 4.2987,
			RatedLoad:     500.0,
			Gain:          128,
			ADCBits:       24,
			Offset:        140,
		},
		Motor: MotorConfig{
			StepsPerRev: 200,
		},
		Logging: LoggingConfig{
			Directory:     "data",
			EchoResponses: false,
		},
		Plot: PlotConfig{
			RefreshInterval:  100 * time.Millisecond,
			MaxDisplayPoints: 1000,
			ImageDPI:         300,
			ImageWidth:       6.4,
			ImageHeight:      4.8,
		},
		Mock: MockConfig{
			SampleRate:     50 * time.Millisecond,
			BaseCount:      -420900, // roughly zero weight after offset
			CountsPerRPM:   -3000,
			NoiseCounts:    400,
			NoiseLineEvery: 97,
			ResponseLag:    500 * time.Millisecond,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
// Offset is left alone since zero is a valid calibration.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.LoadCell.RatedOutput == 0 {
		c.LoadCell.RatedOutput = def.LoadCell.RatedOutput
	}
	if c.LoadCell.SupplyVoltage == 0 {
		c.LoadCell.SupplyVoltage = def.LoadCell.SupplyVoltage
	}
	if c.LoadCell.RatedLoad == 0 {
		c.LoadCell.RatedLoad = def.LoadCell.RatedLoad
	}
	if c.LoadCell.Gain == 0 {
		c.LoadCell.Gain = def.LoadCell.Gain
	}
	if c.LoadCell.ADCBits == 0 {
		c.LoadCell.ADCBits = def.LoadCell.ADCBits
	}

	if c.Motor.StepsPerRev == 0 {
		c.Motor.StepsPerRev = def.Motor.StepsPerRev
	}

	if c.Logging.Directory == "" {
		c.Logging.Directory = def.Logging.Directory
	}

	if c.Plot.RefreshInterval == 0 {
		c.Plot.RefreshInterval = def.Plot.RefreshInterval
	}
	if c.Plot.MaxDisplayPoints == 0 {
		c.Plot.MaxDisplayPoints = def.Plot.MaxDisplayPoints
	}
	if c.Plot.ImageDPI == 0 {
		c.Plot.ImageDPI = def.Plot.ImageDPI
	}
	if c.Plot.ImageWidth == 0 {
		c.Plot.ImageWidth = def.Plot.ImageWidth
	}
	if c.Plot.ImageHeight == 0 {
		c.Plot.ImageHeight = def.Plot.ImageHeight
	}

	if c.Mock.SampleRate == 0 {
		c.Mock.SampleRate = def.Mock.SampleRate
	}
	if c.Mock.ResponseLag == 0 {
		c.Mock.ResponseLag = def.Mock.ResponseLag
	}
}
