package mpu9150

import (
	"context"
	"time"

	"github.com/pkg/errors"

	rutils "github.com/mattjlewis/diozero-sub004/utils"
)

// setupCompass finds the AK8975, reads its sensitivity adjustment and configures the auxiliary I2C
// master to poll it: slave 0 reads the 8 data bytes from ST1, slave 1 kicks off the next single
// measurement.
func (mpu *Driver) setupCompass(ctx context.Context) error {
	if err := mpu.SetBypass(ctx, true); err != nil {
		return err
	}

	fuseErr := mpu.readCompassFuseROM(ctx)

	if err := mpu.SetBypass(ctx, false); err != nil {
		return err
	}
	if fuseErr != nil {
		return fuseErr
	}

	return mpu.apply(ctx, []regWrite{
		byteWrite(regI2CMstCtrl, 0x40),
		byteWrite(regSlv0Addr, bitI2CRead|akmAddress),
		byteWrite(regSlv0Reg, akmRegST1),
		byteWrite(regSlv0Ctrl, bitSlaveEn|8),
		byteWrite(regSlv1Addr, akmAddress),
		byteWrite(regSlv1Reg, akmRegCntl),
		byteWrite(regSlv1Ctrl, bitSlaveEn|1),
		byteWrite(regSlv1DO, akmSingleMeas),
		// Trigger slave 0 and 1 actions at each sample.
		byteWrite(regMstDelayCtl, 0x03),
		// The MPU-9150 needs VDDIO selected for the auxiliary bus.
		byteWrite(regYGOffsTC, bitMstVDDIO),
	})
}

// readCompassFuseROM talks to the AK8975 directly, so bypass must be on.
func (mpu *Driver) readCompassFuseROM(ctx context.Context) error {
	id, err := mpu.readByteAt(ctx, akmAddress, akmRegWhoAmI)
	if err != nil {
		return errors.Wrap(ErrCompassNotFound, err.Error())
	}
	if id != akmWhoAmIValue {
		return errors.Wrapf(ErrCompassNotFound, "device ID 0x%02x", id)
	}

	if err := mpu.writeByteAt(ctx, akmAddress, akmRegCntl, akmPowerDown); err != nil {
		return err
	}
	mpu.sleep(time.Millisecond)
	if err := mpu.writeByteAt(ctx, akmAddress, akmRegCntl, akmFuseROMAcces); err != nil {
		return err
	}
	mpu.sleep(time.Millisecond)
	asa, err := mpu.readBlockAt(ctx, akmAddress, akmRegASAX, 3)
	if err != nil {
		return err
	}
	for i := range mpu.compassAdjust {
		mpu.compassAdjust[i] = int32(asa[i]) + 128
	}
	mpu.compassFound = true
	if err := mpu.writeByteAt(ctx, akmAddress, akmRegCntl, akmPowerDown); err != nil {
		return err
	}
	mpu.sleep(time.Millisecond)
	return nil
}

// CompassFound reports whether Init located the AK8975.
func (mpu *Driver) CompassFound() bool {
	return mpu.compassFound
}

// CompassReg returns the latest magnetometer sample mirrored by the auxiliary master, with the
// fuse ROM sensitivity adjustment applied. The second result is false when no fresh sample is
// ready or the AK8975 flagged an overflow or data error.
func (mpu *Driver) CompassReg(ctx context.Context) ([3]int16, bool, error) {
	if mpu.state.Sensors&SensorCompass == 0 {
		return [3]int16{}, false, errors.Wrap(ErrSensorDisabled, "compass")
	}
	data, err := mpu.readBlock(ctx, regExtSensData, 8)
	if err != nil {
		return [3]int16{}, false, err
	}
	raw, ok := decodeCompass(data, mpu.compassAdjust)
	return raw, ok, nil
}

// decodeCompass parses ST1, the three little-endian axes and ST2.
func decodeCompass(data []byte, adjust [3]int32) ([3]int16, bool) {
	if data[0]&akmDataReady == 0 {
		return [3]int16{}, false
	}
	if data[7]&(akmOverflow|akmDataError) != 0 {
		return [3]int16{}, false
	}
	var raw [3]int16
	for i := range raw {
		value := int32(rutils.Int16FromBytesLE(data[1+2*i : 3+2*i]))
		raw[i] = int16((value * adjust[i]) >> 8)
	}
	return raw, true
}
