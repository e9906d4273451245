package mpu9150

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnsupported is returned for values the hardware or firmware cannot honour.
	ErrUnsupported = errors.New("unsupported request")
	// ErrDeviceAsleep is returned when an operation needs powered sensors and none are on.
	ErrDeviceAsleep = errors.New("device is asleep: no sensors are enabled")
	// ErrSensorDisabled is returned when reading a sensor that is not powered.
	ErrSensorDisabled = errors.New("sensor is not enabled")
	// ErrFIFOSensorsAsleep is returned when a FIFO mask names sensors that are powered down. The
	// powered subset is still applied.
	ErrFIFOSensorsAsleep = errors.New("FIFO mask includes sensors that are asleep")
	// ErrExclusiveQuaternionModes is wrapped in a ConfigurationError when both quaternion modes
	// are requested.
	ErrExclusiveQuaternionModes = errors.New("LP_QUAT and 6X_LP_QUAT cannot both be enabled")
	// ErrDMPActive is returned by operations the DMP owns while it is running.
	ErrDMPActive = errors.New("operation not allowed while the DMP is enabled")
	// ErrDMPInactive is returned by DMP FIFO reads while the DMP is off.
	ErrDMPInactive = errors.New("the DMP is not enabled")
	// ErrFirmwareNotLoaded is returned when enabling the DMP before any image is loaded.
	ErrFirmwareNotLoaded = errors.New("DMP firmware has not been loaded")
	// ErrCompassNotFound is returned when the AK8975 does not answer with its device ID.
	ErrCompassNotFound = errors.New("AK8975 compass not found on the auxiliary bus")
)

// BusError is a failed transfer with the register it was aimed at.
type BusError struct {
	Op       string
	Register byte
	Err      error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("mpu9150 %s register 0x%02x: %v", e.Op, e.Register, e.Err)
}

// Unwrap returns the transport error.
func (e *BusError) Unwrap() error {
	return e.Err
}

func newBusError(op string, register byte, err error) error {
	if err == nil {
		return nil
	}
	return &BusError{Op: op, Register: register, Err: err}
}

// ConfigurationError is a request that was refused before touching the bus.
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Setting, e.Err)
}

// Unwrap returns the underlying reason.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func newConfigurationError(setting string, format string, args ...interface{}) error {
	return &ConfigurationError{Setting: setting, Err: errors.Errorf(format, args...)}
}
