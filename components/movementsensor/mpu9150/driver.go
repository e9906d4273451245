// Package mpu9150 drives the InvenSense MPU-9150: an MPU-6050 gyroscope and accelerometer die
// with an AK8975 magnetometer hanging off its auxiliary I2C master. A register map is at
// https://invensense.tdk.com/wp-content/uploads/2015/02/MPU-9150-Register-Map.pdf
//
// The package has three layers:
//   - Driver owns the register configuration: power, ranges, filters, rates, FIFO and interrupts.
//   - DMP loads motion-processing firmware into the chip's memory banks, switches its features
//     on and off and decodes the packets it pushes into the FIFO.
//   - Sensor wraps both with a background poller and normalized readings.
//
// Driver and DMP are not safe for concurrent use; Sensor serializes access to them.
//
// The chip has two possible I2C addresses, which can be selected by wiring the AD0 pin to either
// hot or ground:
//   - if AD0 is wired to ground, it uses the default I2C address of 0x68
//   - if AD0 is wired to hot, it uses the alternate I2C address of 0x69
package mpu9150

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"github.com/mattjlewis/diozero-sub004/components/board/genericlinux/buses"
	"github.com/mattjlewis/diozero-sub004/logging"
)

// Stats counts stream recoveries. The counters may be read from any goroutine.
type Stats struct {
	FIFOResets         atomic.Int64
	FIFOOverflows      atomic.Int64
	CorruptQuaternions atomic.Int64
	PacketsDecoded     atomic.Int64
}

// Driver is the register-level configuration engine for one chip.
type Driver struct {
	bus     buses.I2C
	address byte
	clk     clock.Clock
	logger  logging.Logger

	state DeviceConfigState
	// Sensitivity adjustment from the AK8975 fuse ROM, already offset by 128.
	compassAdjust [3]int32
	compassFound  bool

	stats Stats
}

// NewDriver creates a driver for the chip at address. Nothing is written until Init.
func NewDriver(bus buses.I2C, address byte, clk clock.Clock, logger logging.Logger) *Driver {
	if clk == nil {
		clk = clock.New()
	}
	return &Driver{
		bus:     bus,
		address: address,
		clk:     clk,
		logger:  logger,
		state:   invalidatedState(),
	}
}

// State returns a copy of the cached configuration.
func (mpu *Driver) State() DeviceConfigState {
	return mpu.state
}

// Stats returns the stream recovery counters.
func (mpu *Driver) Stats() *Stats {
	return &mpu.stats
}

// Clock returns the clock used for settle delays and timestamps.
func (mpu *Driver) Clock() clock.Clock {
	return mpu.clk
}

func (mpu *Driver) withHandle(address byte, f func(handle buses.I2CHandle) error) error {
	handle, err := mpu.bus.OpenHandle(address)
	if err != nil {
		return err
	}
	defer func() {
		err := handle.Close()
		if err != nil {
			mpu.logger.Error(err)
		}
	}()
	return f(handle)
}

func (mpu *Driver) readByte(ctx context.Context, register byte) (byte, error) {
	return mpu.readByteAt(ctx, mpu.address, register)
}

func (mpu *Driver) readByteAt(ctx context.Context, address, register byte) (byte, error) {
	var value byte
	err := mpu.withHandle(address, func(handle buses.I2CHandle) error {
		var err error
		value, err = handle.ReadByteData(ctx, register)
		return err
	})
	return value, newBusError("read", register, err)
}

func (mpu *Driver) readWord(ctx context.Context, register byte) (uint16, error) {
	var value uint16
	err := mpu.withHandle(mpu.address, func(handle buses.I2CHandle) error {
		var err error
		value, err = handle.ReadWordData(ctx, register)
		return err
	})
	return value, newBusError("read", register, err)
}

func (mpu *Driver) readBlock(ctx context.Context, register byte, length int) ([]byte, error) {
	return mpu.readBlockAt(ctx, mpu.address, register, length)
}

func (mpu *Driver) readBlockAt(ctx context.Context, address, register byte, length int) ([]byte, error) {
	if length > maxBlockRead {
		return nil, newBusError("read", register,
			errors.Errorf("block read of %d bytes exceeds %d", length, maxBlockRead))
	}
	var results []byte
	err := mpu.withHandle(address, func(handle buses.I2CHandle) error {
		var err error
		results, err = handle.ReadBlockData(ctx, register, uint8(length))
		if err == nil && len(results) != length {
			err = errors.Errorf("short read: wanted %d bytes, got %d", length, len(results))
		}
		return err
	})
	return results, newBusError("read", register, err)
}

func (mpu *Driver) writeByte(ctx context.Context, register, value byte) error {
	return mpu.writeByteAt(ctx, mpu.address, register, value)
}

func (mpu *Driver) writeByteAt(ctx context.Context, address, register, value byte) error {
	err := mpu.withHandle(address, func(handle buses.I2CHandle) error {
		return handle.WriteByteData(ctx, register, value)
	})
	return newBusError("write", register, err)
}

func (mpu *Driver) writeWord(ctx context.Context, register byte, value uint16) error {
	err := mpu.withHandle(mpu.address, func(handle buses.I2CHandle) error {
		return handle.WriteWordData(ctx, register, value)
	})
	return newBusError("write", register, err)
}

func (mpu *Driver) writeBlock(ctx context.Context, register byte, data []byte) error {
	err := mpu.withHandle(mpu.address, func(handle buses.I2CHandle) error {
		return handle.WriteBlockData(ctx, register, data)
	})
	return newBusError("write", register, err)
}

// apply performs planned writes in order, stopping at the first failure.
func (mpu *Driver) apply(ctx context.Context, writes []regWrite) error {
	for _, w := range writes {
		mpu.logger.CDebugf(ctx, "write register 0x%02x: % x", w.register, w.data)
		var err error
		if len(w.data) == 1 {
			err = mpu.writeByte(ctx, w.register, w.data[0])
		} else {
			err = mpu.writeBlock(ctx, w.register, w.data)
		}
		if err != nil {
			return err
		}
		if w.settle > 0 {
			mpu.sleep(w.settle)
		}
	}
	return nil
}

func (mpu *Driver) sleep(d time.Duration) {
	mpu.clk.Sleep(d)
}

// WhoAmI returns the WHO_AM_I register, which holds 0x68 regardless of the AD0 wiring.
func (mpu *Driver) WhoAmI(ctx context.Context) (byte, error) {
	return mpu.readByte(ctx, regWhoAmI)
}

// Init resets the chip and brings it to the default configuration: gyro +-2000dps, accel +-2g,
// 42Hz LPF, 50Hz sample rate, FIFO off, compass at 10Hz, and every sensor asleep.
func (mpu *Driver) Init(ctx context.Context) error {
	whoAmI, err := mpu.WhoAmI(ctx)
	if err != nil {
		return errors.Wrapf(err, "can't read from I2C address 0x%02x", mpu.address)
	}
	if whoAmI != whoAmIValue {
		return errors.Errorf("unexpected non-MPU9150 device at address 0x%02x: response 0x%02x", mpu.address, whoAmI)
	}

	if err := mpu.writeByte(ctx, regPwrMgmt1, bitReset); err != nil {
		return err
	}
	mpu.sleep(resetSettle)
	if err := mpu.writeByte(ctx, regPwrMgmt1, 0); err != nil {
		return err
	}

	mpu.state = invalidatedState()

	if err := mpu.SetGyroFSR(ctx, GyroFSR2000); err != nil {
		return err
	}
	if err := mpu.SetAccelFSR(ctx, AccelFSR2G); err != nil {
		return err
	}
	if err := mpu.SetLPF(ctx, 42); err != nil {
		return err
	}
	if err := mpu.SetSampleRate(ctx, 50); err != nil {
		return err
	}
	if err := mpu.ConfigureFIFO(ctx, 0); err != nil {
		return err
	}

	switch err := mpu.setupCompass(ctx); {
	case errors.Is(err, ErrCompassNotFound):
		mpu.logger.Warn(err)
	case err != nil:
		return err
	default:
		if err := mpu.SetCompassSampleRate(ctx, 10); err != nil {
			return err
		}
	}

	return mpu.SetSensors(ctx, 0)
}

// Close puts the chip to sleep.
func (mpu *Driver) Close(ctx context.Context) error {
	return mpu.SetSensors(ctx, 0)
}
