package mpu9150

import (
	"context"
	"math"

	"github.com/pkg/errors"

	rutils "github.com/mattjlewis/diozero-sub004/utils"
)

// TapAxis selects which axes register taps.
type TapAxis byte

// Tap axes.
const (
	TapX   TapAxis = 0x01
	TapY   TapAxis = 0x02
	TapZ   TapAxis = 0x04
	TapXYZ         = TapX | TapY | TapZ
)

// dmpTicks converts milliseconds to DMP sample periods.
func dmpTicks(ms int) uint16 {
	return uint16(ms / (1000 / DefaultDMPSampleRate))
}

// SetTapThresh sets the tap threshold, in mg/ms, for each axis in axis.
func (dmp *DMP) SetTapThresh(ctx context.Context, axis TapAxis, thresh int) error {
	if axis&TapXYZ == 0 || thresh > dmpMaxTapThreshold || thresh < 0 {
		return errors.Wrapf(ErrUnsupported, "tap threshold %d on axes 0x%x", thresh, axis)
	}

	scaled := float64(thresh) / DefaultDMPSampleRate
	sensitivity := float64(dmp.mpu.state.AccelFSR.Sensitivity())
	primary := rutils.BytesFromUint16BE(uint16(math.Round(scaled * sensitivity)))
	secondary := rutils.BytesFromUint16BE(uint16(math.Round(scaled * sensitivity * 0.75)))

	for _, target := range []struct {
		axis               TapAxis
		threshold, backoff uint16
	}{
		{TapX, dmpTapThreshX, dmpTapAccelThreshX},
		{TapY, dmpTapThreshY, dmpTapAccelThreshY},
		{TapZ, dmpTapThreshZ, dmpTapAccelThreshZ},
	} {
		if axis&target.axis == 0 {
			continue
		}
		if err := dmp.mpu.WriteMem(ctx, target.threshold, primary); err != nil {
			return err
		}
		if err := dmp.mpu.WriteMem(ctx, target.backoff, secondary); err != nil {
			return err
		}
	}
	return nil
}

// SetTapAxes selects which axes register taps.
func (dmp *DMP) SetTapAxes(ctx context.Context, axis TapAxis) error {
	var value byte
	if axis&TapX != 0 {
		value |= 0x30
	}
	if axis&TapY != 0 {
		value |= 0x0C
	}
	if axis&TapZ != 0 {
		value |= 0x03
	}
	return dmp.mpu.WriteMem(ctx, d1_72, []byte{value})
}

// SetTapCount sets the number of consecutive taps, clamped to 1..4, needed for an event.
func (dmp *DMP) SetTapCount(ctx context.Context, minTaps int) error {
	minTaps = max(1, min(minTaps, 4))
	return dmp.mpu.WriteMem(ctx, d1_79, []byte{byte(minTaps - 1)})
}

// SetTapTime sets the minimum gap between taps, in milliseconds.
func (dmp *DMP) SetTapTime(ctx context.Context, ms int) error {
	return dmp.mpu.WriteMem(ctx, dmpTapMinWindow, rutils.BytesFromUint16BE(dmpTicks(ms)))
}

// SetTapTimeMulti sets the longest gap, in milliseconds, still counted as a multi-tap.
func (dmp *DMP) SetTapTimeMulti(ctx context.Context, ms int) error {
	return dmp.mpu.WriteMem(ctx, d1_218, rutils.BytesFromUint16BE(dmpTicks(ms)))
}

// SetShakeRejectThresh rejects taps while the gyro reads more than dps. sf is the gyro scale
// factor the firmware was configured with.
func (dmp *DMP) SetShakeRejectThresh(ctx context.Context, sf int64, dps int) error {
	scaled := sf / 1000 * int64(dps)
	return dmp.mpu.WriteMem(ctx, d1_92, rutils.BytesFromInt32BE(int32(scaled)))
}

// SetShakeRejectTime sets how long, in milliseconds, the gyro must exceed the shake threshold
// before taps are rejected. The firmware adds 60ms.
func (dmp *DMP) SetShakeRejectTime(ctx context.Context, ms int) error {
	return dmp.mpu.WriteMem(ctx, d1_90, rutils.BytesFromUint16BE(dmpTicks(ms)))
}

// SetShakeRejectTimeout sets how long, in milliseconds, the gyro must stay under the shake
// threshold before taps count again. The firmware adds 60ms.
func (dmp *DMP) SetShakeRejectTimeout(ctx context.Context, ms int) error {
	return dmp.mpu.WriteMem(ctx, d1_88, rutils.BytesFromUint16BE(dmpTicks(ms)))
}

func (dmp *DMP) applyTapDefaults(ctx context.Context) error {
	steps := []func(context.Context) error{
		func(ctx context.Context) error { return dmp.SetTapThresh(ctx, TapXYZ, 250) },
		func(ctx context.Context) error { return dmp.SetTapAxes(ctx, TapXYZ) },
		func(ctx context.Context) error { return dmp.SetTapCount(ctx, 1) },
		func(ctx context.Context) error { return dmp.SetTapTime(ctx, 100) },
		func(ctx context.Context) error { return dmp.SetTapTimeMulti(ctx, 500) },
		func(ctx context.Context) error { return dmp.SetShakeRejectThresh(ctx, gyroScaleFactor, 200) },
		func(ctx context.Context) error { return dmp.SetShakeRejectTime(ctx, 40) },
		func(ctx context.Context) error { return dmp.SetShakeRejectTimeout(ctx, 10) },
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// PedometerStepCount returns the steps counted since the last reset.
func (dmp *DMP) PedometerStepCount(ctx context.Context) (uint32, error) {
	data, err := dmp.mpu.ReadMem(ctx, dPedStdStepCtr, 4)
	if err != nil {
		return 0, err
	}
	return uint32(rutils.Int32FromBytesBE(data)), nil
}

// SetPedometerStepCount overwrites the step counter.
func (dmp *DMP) SetPedometerStepCount(ctx context.Context, count uint32) error {
	return dmp.mpu.WriteMem(ctx, dPedStdStepCtr, rutils.BytesFromInt32BE(int32(count)))
}

// PedometerWalkTime returns the walking time, in milliseconds.
func (dmp *DMP) PedometerWalkTime(ctx context.Context) (uint32, error) {
	data, err := dmp.mpu.ReadMem(ctx, dPedStdTimeCtr, 4)
	if err != nil {
		return 0, err
	}
	return uint32(rutils.Int32FromBytesBE(data)) * 20, nil
}

// SetPedometerWalkTime overwrites the walking time, in milliseconds.
func (dmp *DMP) SetPedometerWalkTime(ctx context.Context, ms uint32) error {
	return dmp.mpu.WriteMem(ctx, dPedStdTimeCtr, rutils.BytesFromInt32BE(int32(ms/20)))
}
