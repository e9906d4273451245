package mpu9150

import (
	"context"

	"github.com/pkg/errors"
)

// SetGyroFSR sets the gyro full-scale range.
func (mpu *Driver) SetGyroFSR(ctx context.Context, fsr GyroFSR) error {
	next, writes, err := planGyroFSR(mpu.state, fsr)
	if err != nil {
		return err
	}
	if err := mpu.apply(ctx, writes); err != nil {
		return err
	}
	mpu.state = next
	return nil
}

// SetAccelFSR sets the accelerometer full-scale range.
func (mpu *Driver) SetAccelFSR(ctx context.Context, fsr AccelFSR) error {
	next, writes, err := planAccelFSR(mpu.state, fsr)
	if err != nil {
		return err
	}
	if err := mpu.apply(ctx, writes); err != nil {
		return err
	}
	mpu.state = next
	return nil
}

// SetLPF selects the widest digital low-pass filter at or below hz.
func (mpu *Driver) SetLPF(ctx context.Context, hz int) error {
	next, writes, err := planLPF(mpu.state, hz)
	if err != nil {
		return err
	}
	if err := mpu.apply(ctx, writes); err != nil {
		return err
	}
	mpu.state = next
	return nil
}

// SetSampleRate sets the sample rate, clamped to [4, 1000] Hz. The compass rate is capped at the
// new rate and the LPF is set to half of it. Below 10Hz the LPF stays at its 5Hz minimum, which is
// more than half the rate. In low-power accel mode, rates up to 40Hz only change the wake-up
// frequency; anything faster leaves the mode.
func (mpu *Driver) SetSampleRate(ctx context.Context, rate int) error {
	if mpu.state.Asleep() {
		return ErrDeviceAsleep
	}
	if mpu.state.DMPOn {
		return ErrDMPActive
	}
	if mpu.state.LowPowerAccel {
		if rate > 0 && rate <= 40 {
			return mpu.LowPowerAccelMode(ctx, rate)
		}
		if err := mpu.LowPowerAccelMode(ctx, 0); err != nil {
			return err
		}
	}

	next, writes, err := planSampleRateDivider(mpu.state, rate)
	if err != nil {
		return err
	}
	if err := mpu.apply(ctx, writes); err != nil {
		return err
	}
	mpu.state = next

	compassRate := min(mpu.state.CompassSampleRate, maxCompassSampleRate, mpu.state.SampleRate)
	if err := mpu.SetCompassSampleRate(ctx, compassRate); err != nil {
		return err
	}
	return mpu.SetLPF(ctx, mpu.state.SampleRate>>1)
}

// SetCompassSampleRate sets how often the auxiliary master samples the AK8975. The rate must not
// exceed the sample rate or 100Hz.
func (mpu *Driver) SetCompassSampleRate(ctx context.Context, rate int) error {
	next, writes, err := planCompassSampleRate(mpu.state, rate)
	if err != nil {
		return err
	}
	if err := mpu.apply(ctx, writes); err != nil {
		return err
	}
	mpu.state = next
	return nil
}

// SetIntLatched selects latched interrupts, which hold the INT pin until any register read.
func (mpu *Driver) SetIntLatched(ctx context.Context, enable bool) error {
	next, writes := planIntLatched(mpu.state, enable)
	if err := mpu.apply(ctx, writes); err != nil {
		return err
	}
	mpu.state = next
	return nil
}

// SetIntLevel selects the INT pin polarity. It takes effect on the next INT_PIN_CFG write.
func (mpu *Driver) SetIntLevel(activeLow bool) {
	mpu.state.ActiveLowInt = activeLow
}

// SetIntEnable enables the data-ready interrupt, or the DMP interrupt while the DMP is running.
func (mpu *Driver) SetIntEnable(ctx context.Context, enable bool) error {
	next, writes, err := planIntEnable(mpu.state, enable)
	if err != nil {
		return err
	}
	if err := mpu.apply(ctx, writes); err != nil {
		return err
	}
	mpu.state = next
	return nil
}

// SetBypass wires the AK8975 directly onto the host bus (enable) or back behind the chip's
// auxiliary I2C master.
func (mpu *Driver) SetBypass(ctx context.Context, enable bool) error {
	if mpu.state.Bypass == bypassFor(enable) {
		return nil
	}
	userCtrl, err := mpu.readByte(ctx, regUserCtrl)
	if err != nil {
		return err
	}
	next, writes := planBypass(mpu.state, enable, userCtrl)
	if err := mpu.apply(ctx, writes); err != nil {
		return err
	}
	mpu.state = next
	return nil
}

// SetSensors powers on exactly the sensors in mask; zero puts the chip to sleep. A failed power
// management write leaves the driver treating every sensor as off.
func (mpu *Driver) SetSensors(ctx context.Context, mask SensorMask) error {
	mask &^= SensorQuat
	if mpu.state.Sensors == mask && !mpu.state.LowPowerAccel {
		return nil
	}

	pwr1, pwr2, clockSource := planPower(mask)
	if err := mpu.writeByte(ctx, regPwrMgmt1, pwr1); err != nil {
		mpu.state.Sensors = 0
		return err
	}
	mpu.state.ClockSource = clockSource
	if err := mpu.writeByte(ctx, regPwrMgmt2, pwr2); err != nil {
		mpu.state.Sensors = 0
		return err
	}

	if mask != 0 && mask != SensorAccel {
		// Latched interrupts are only needed for motion wake-up, which is accel only.
		if err := mpu.SetIntLatched(ctx, false); err != nil {
			return err
		}
	}

	userCtrl, err := mpu.readByte(ctx, regUserCtrl)
	if err != nil {
		return err
	}
	akmControl, userCtrl := planSensorsUserCtrl(userCtrl, mask, mpu.state.DMPOn)
	if err := mpu.apply(ctx, []regWrite{
		byteWrite(regSlv1DO, akmControl),
		byteWrite(regUserCtrl, userCtrl),
	}); err != nil {
		return err
	}

	mpu.state.Sensors = mask
	mpu.state.LowPowerAccel = false
	mpu.sleep(sensorsSettle)
	return nil
}

// ResetFIFO flushes the FIFO and restarts whichever of the sensors or the DMP fills it.
func (mpu *Driver) ResetFIFO(ctx context.Context) error {
	writes, err := planResetFIFO(mpu.state)
	if err != nil {
		return err
	}
	mpu.stats.FIFOResets.Inc()
	return mpu.apply(ctx, writes)
}

// ConfigureFIFO selects which sensors feed the FIFO. The compass has no FIFO slot and is ignored.
// If mask names sensors that are powered down, the powered subset is still applied and
// ErrFIFOSensorsAsleep is returned. While the DMP runs it owns the FIFO and this is a no-op.
func (mpu *Driver) ConfigureFIFO(ctx context.Context, mask SensorMask) error {
	if mpu.state.DMPOn {
		return nil
	}
	mask &^= SensorCompass | SensorQuat
	if mpu.state.Asleep() {
		return ErrDeviceAsleep
	}

	var partial error
	fifoEnable := mask & mpu.state.Sensors
	if fifoEnable != mask {
		partial = errors.Wrapf(ErrFIFOSensorsAsleep, "requested %v, powered %v", mask, mpu.state.Sensors)
	}
	wantInterrupt := mask != 0 || mpu.state.LowPowerAccel
	if fifoEnable == mpu.state.FIFOEnable && mpu.state.InterruptsEnabled() == wantInterrupt {
		return partial
	}

	prev := mpu.state.FIFOEnable
	mpu.state.FIFOEnable = fifoEnable
	if err := mpu.SetIntEnable(ctx, wantInterrupt); err != nil {
		return err
	}
	if mask != 0 {
		if err := mpu.ResetFIFO(ctx); err != nil {
			mpu.state.FIFOEnable = prev
			return err
		}
	}
	return partial
}

// LowPowerAccelMode runs the accelerometer alone, waking at rate Hz (1, 5, 20 or 40; other values
// round up). Zero leaves the mode.
func (mpu *Driver) LowPowerAccelMode(ctx context.Context, rate int) error {
	if rate > 40 || rate < 0 {
		return errors.Wrapf(ErrUnsupported, "low-power accel rate %d", rate)
	}

	if rate == 0 {
		if err := mpu.SetIntLatched(ctx, false); err != nil {
			return err
		}
		if err := mpu.writeBlock(ctx, regPwrMgmt1, []byte{0, bitStbyXYZG}); err != nil {
			mpu.state.Sensors = 0
			return err
		}
		mpu.state.LowPowerAccel = false
		return nil
	}

	// Latched interrupts keep the host from missing a wake-up event.
	if err := mpu.SetIntLatched(ctx, true); err != nil {
		return err
	}
	lpfHz, wake := lowPowerAccelSettings(rate)
	if err := mpu.SetLPF(ctx, lpfHz); err != nil {
		return err
	}
	if err := mpu.writeBlock(ctx, regPwrMgmt1, []byte{bitLPACycle, wake<<6 | bitStbyXYZG}); err != nil {
		mpu.state.Sensors = 0
		return err
	}
	mpu.state.Sensors = SensorAccel
	mpu.state.ClockSource = ClockInternal
	mpu.state.LowPowerAccel = true
	return mpu.ConfigureFIFO(ctx, 0)
}

// SetDMPState starts or stops the DMP. Starting needs loaded firmware; the DMP then owns the FIFO,
// the sample rate and the interrupt line.
func (mpu *Driver) SetDMPState(ctx context.Context, enable bool) error {
	if mpu.state.DMPOn == enable {
		return nil
	}

	if enable {
		if !mpu.state.DMPLoaded {
			return ErrFirmwareNotLoaded
		}
		if err := mpu.SetIntEnable(ctx, false); err != nil {
			return err
		}
		if err := mpu.SetBypass(ctx, false); err != nil {
			return err
		}
		if err := mpu.SetSampleRate(ctx, mpu.state.DMPSampleRate); err != nil {
			return err
		}
		if err := mpu.writeByte(ctx, regFIFOEn, 0); err != nil {
			return err
		}
		mpu.state.DMPOn = true
		if err := mpu.SetIntEnable(ctx, true); err != nil {
			return err
		}
		return mpu.ResetFIFO(ctx)
	}

	if err := mpu.SetIntEnable(ctx, false); err != nil {
		return err
	}
	if err := mpu.writeByte(ctx, regFIFOEn, byte(mpu.state.FIFOEnable)); err != nil {
		return err
	}
	mpu.state.DMPOn = false
	return mpu.ResetFIFO(ctx)
}
