package mpu9150

import (
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

const (
	defaultSampleRate   = 50
	defaultCompassRate  = 10
	defaultPollInterval = 10 * time.Millisecond
)

// Config is used to configure the attributes of the chip.
type Config struct {
	I2CBus                 string `json:"i2c_bus"`
	UseAlternateI2CAddress bool   `json:"use_alt_i2c_address,omitempty"`

	GyroFSR        int      `json:"gyro_fsr_dps,omitempty"`
	AccelFSR       int      `json:"accel_fsr_g,omitempty"`
	SampleRate     int      `json:"sample_rate_hz,omitempty"`
	CompassRate    int      `json:"compass_rate_hz,omitempty"`
	Sensors        []string `json:"sensors,omitempty"`
	PollIntervalMs int      `json:"poll_interval_ms,omitempty"`
	CalibrateGyro  bool     `json:"calibrate_gyro,omitempty"`

	// The DMP is only used when a firmware image is configured.
	FirmwarePath         string   `json:"firmware_path,omitempty"`
	FirmwareStartAddress int      `json:"firmware_start_address,omitempty"`
	DMPFeatures          []string `json:"dmp_features,omitempty"`
	DMPFIFORate          int      `json:"dmp_fifo_rate_hz,omitempty"`
	InterruptMode        string   `json:"interrupt_mode,omitempty"`
	Orientation          [][]int  `json:"orientation,omitempty"`
	QuaternionScale      float64  `json:"quaternion_scale,omitempty"`
}

// ConfigFromAttributes decodes a JSON-style attribute map.
func ConfigFromAttributes(attributes map[string]interface{}) (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      &cfg,
		ErrorUnused: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "decoding mpu9150 attributes")
	}
	return &cfg, nil
}

// Validate ensures all parts of the config are valid, and then returns the list of things we
// depend on.
func (cfg *Config) Validate(path string) ([]string, error) {
	if cfg.I2CBus == "" {
		return nil, utils.NewConfigValidationFieldRequiredError(path, "i2c_bus")
	}
	if _, err := cfg.gyroFSR(); err != nil {
		return nil, utils.NewConfigValidationError(path, err)
	}
	if _, err := cfg.accelFSR(); err != nil {
		return nil, utils.NewConfigValidationError(path, err)
	}
	if _, err := cfg.sensors(); err != nil {
		return nil, utils.NewConfigValidationError(path, err)
	}
	if cfg.SampleRate < 0 || cfg.CompassRate < 0 || cfg.PollIntervalMs < 0 || cfg.DMPFIFORate < 0 {
		return nil, utils.NewConfigValidationError(path, errors.New("rates and intervals cannot be negative"))
	}
	if cfg.CompassRate > maxCompassSampleRate {
		return nil, utils.NewConfigValidationError(path,
			errors.Errorf("compass_rate_hz %d is above %d", cfg.CompassRate, maxCompassSampleRate))
	}

	if cfg.FirmwarePath == "" {
		if len(cfg.DMPFeatures) > 0 || cfg.DMPFIFORate != 0 || cfg.InterruptMode != "" {
			return nil, utils.NewConfigValidationFieldRequiredError(path, "firmware_path")
		}
	} else {
		features, err := cfg.dmpFeatures()
		if err != nil {
			return nil, utils.NewConfigValidationError(path, err)
		}
		if err := features.validate(); err != nil {
			return nil, utils.NewConfigValidationError(path, err)
		}
		if cfg.DMPFIFORate > dmpMaxFIFORate {
			return nil, utils.NewConfigValidationError(path,
				errors.Errorf("dmp_fifo_rate_hz %d is above %d", cfg.DMPFIFORate, dmpMaxFIFORate))
		}
		if cfg.FirmwareStartAddress < 0 || cfg.FirmwareStartAddress > 0xFFFF {
			return nil, utils.NewConfigValidationError(path,
				errors.Errorf("firmware_start_address 0x%x is not a 16-bit address", cfg.FirmwareStartAddress))
		}
	}
	if _, err := cfg.interruptMode(); err != nil {
		return nil, utils.NewConfigValidationError(path, err)
	}
	if _, err := cfg.orientation(); err != nil {
		return nil, utils.NewConfigValidationError(path, err)
	}

	return []string{cfg.I2CBus}, nil
}

func (cfg *Config) address() byte {
	if cfg.UseAlternateI2CAddress {
		return AlternateAddress
	}
	return DefaultAddress
}

func (cfg *Config) gyroFSR() (GyroFSR, error) {
	if cfg.GyroFSR == 0 {
		return GyroFSR2000, nil
	}
	return GyroFSRFromDPS(cfg.GyroFSR)
}

func (cfg *Config) accelFSR() (AccelFSR, error) {
	if cfg.AccelFSR == 0 {
		return AccelFSR2G, nil
	}
	return AccelFSRFromG(cfg.AccelFSR)
}

func (cfg *Config) sensors() (SensorMask, error) {
	if len(cfg.Sensors) == 0 {
		return SensorAll, nil
	}
	return ParseSensors(cfg.Sensors)
}

func (cfg *Config) sampleRate() int {
	if cfg.SampleRate == 0 {
		return defaultSampleRate
	}
	return cfg.SampleRate
}

func (cfg *Config) compassRate() int {
	if cfg.CompassRate == 0 {
		return defaultCompassRate
	}
	return cfg.CompassRate
}

func (cfg *Config) pollInterval() time.Duration {
	if cfg.PollIntervalMs == 0 {
		return defaultPollInterval
	}
	return time.Duration(cfg.PollIntervalMs) * time.Millisecond
}

func (cfg *Config) firmwareStartAddress() uint16 {
	if cfg.FirmwareStartAddress == 0 {
		return DefaultFirmwareStartAddress
	}
	return uint16(cfg.FirmwareStartAddress)
}

func (cfg *Config) dmpFeatures() (Feature, error) {
	if len(cfg.DMPFeatures) == 0 {
		return Feature6XLPQuat | FeatureSendRawAccel | FeatureSendCalGyro | FeatureGyroCal, nil
	}
	return ParseFeatures(cfg.DMPFeatures)
}

func (cfg *Config) dmpFIFORate() int {
	if cfg.DMPFIFORate == 0 {
		return defaultSampleRate
	}
	return cfg.DMPFIFORate
}

func (cfg *Config) interruptMode() (InterruptMode, error) {
	switch strings.ToLower(cfg.InterruptMode) {
	case "", "continuous":
		return InterruptContinuous, nil
	case "gesture":
		return InterruptGesture, nil
	default:
		return 0, errors.Wrapf(ErrUnsupported, "interrupt_mode %q", cfg.InterruptMode)
	}
}

func (cfg *Config) orientation() (OrientationMatrix, error) {
	if len(cfg.Orientation) == 0 {
		return IdentityOrientation, nil
	}
	var m OrientationMatrix
	if len(cfg.Orientation) != 3 {
		return m, newConfigurationError("orientation", "need 3 rows, got %d", len(cfg.Orientation))
	}
	for i, row := range cfg.Orientation {
		if len(row) != 3 {
			return m, newConfigurationError("orientation", "row %d has %d entries", i, len(row))
		}
		for j, v := range row {
			if v < -1 || v > 1 {
				return m, newConfigurationError("orientation", "entry [%d][%d] is %d", i, j, v)
			}
			m[i][j] = int8(v)
		}
	}
	if _, err := m.Scalar(); err != nil {
		return m, err
	}
	return m, nil
}
