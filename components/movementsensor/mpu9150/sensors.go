package mpu9150

import (
	"context"
	"time"

	"github.com/pkg/errors"

	rutils "github.com/mattjlewis/diozero-sub004/utils"
)

func vectorFromBytesBE(data []byte) [3]int16 {
	return [3]int16{
		rutils.Int16FromBytesBE(data[0:2]),
		rutils.Int16FromBytesBE(data[2:4]),
		rutils.Int16FromBytesBE(data[4:6]),
	}
}

// GyroReg reads the raw gyro registers.
func (mpu *Driver) GyroReg(ctx context.Context) ([3]int16, error) {
	if mpu.state.Sensors&SensorXYZGyro == 0 {
		return [3]int16{}, errors.Wrap(ErrSensorDisabled, "gyro")
	}
	data, err := mpu.readBlock(ctx, regGyroXOutH, 6)
	if err != nil {
		return [3]int16{}, err
	}
	return vectorFromBytesBE(data), nil
}

// AccelReg reads the raw accelerometer registers.
func (mpu *Driver) AccelReg(ctx context.Context) ([3]int16, error) {
	if mpu.state.Sensors&SensorAccel == 0 {
		return [3]int16{}, errors.Wrap(ErrSensorDisabled, "accel")
	}
	data, err := mpu.readBlock(ctx, regAccelXOutH, 6)
	if err != nil {
		return [3]int16{}, err
	}
	return vectorFromBytesBE(data), nil
}

// Temperature returns the die temperature in degrees Celsius.
func (mpu *Driver) Temperature(ctx context.Context) (float64, error) {
	if mpu.state.Asleep() {
		return 0, ErrDeviceAsleep
	}
	raw, err := mpu.readWord(ctx, regTempOutH)
	if err != nil {
		return 0, err
	}
	return temperatureFromRaw(int16(raw)), nil
}

func temperatureFromRaw(raw int16) float64 {
	return float64(int(raw)-tempOffset)/tempSensitivity + roomTemperature
}

// IntStatus returns DMP_INT_STATUS in the high byte and INT_STATUS in the low byte.
func (mpu *Driver) IntStatus(ctx context.Context) (uint16, error) {
	if mpu.state.Asleep() {
		return 0, ErrDeviceAsleep
	}
	return mpu.readWord(ctx, regDMPIntStat)
}

// SetGyroBiasReg loads the gyro offset registers. bias is in the +-1000dps format, so the
// hardware subtracts it from every sample.
func (mpu *Driver) SetGyroBiasReg(ctx context.Context, bias [3]int16) error {
	for i, register := range []byte{regXGOffsUsrH, regYGOffsUsrH, regZGOffsUsrH} {
		if err := mpu.writeWord(ctx, register, uint16(-bias[i])); err != nil {
			return err
		}
	}
	return nil
}

// ReadAccelBias returns the factory accelerometer offset registers.
func (mpu *Driver) ReadAccelBias(ctx context.Context) ([3]int16, error) {
	data, err := mpu.readBlock(ctx, regXAOffsH, 6)
	if err != nil {
		return [3]int16{}, err
	}
	return vectorFromBytesBE(data), nil
}

// SetAccelBiasReg subtracts bias (+-16g format) from the factory accelerometer offsets. Bit 0 of
// each register holds temperature compensation and is preserved.
func (mpu *Driver) SetAccelBiasReg(ctx context.Context, bias [3]int16) error {
	current, err := mpu.ReadAccelBias(ctx)
	if err != nil {
		return err
	}
	data := make([]byte, 0, 6)
	for i := range current {
		data = append(data, rutils.BytesFromUint16BE(uint16(current[i]-(bias[i]&^1)))...)
	}
	return mpu.writeBlock(ctx, regXAOffsH, data)
}

// FIFOSample is one sensor packet read from the FIFO while the DMP is off.
type FIFOSample struct {
	Gyro      [3]int16
	Accel     [3]int16
	Sensors   SensorMask
	Timestamp time.Time
	// More is how many further complete packets are waiting.
	More int
}

func fifoPacketSize(mask SensorMask) int {
	size := 0
	for _, axis := range []SensorMask{SensorXGyro, SensorYGyro, SensorZGyro} {
		if mask&axis != 0 {
			size += 2
		}
	}
	if mask&SensorAccel != 0 {
		size += 6
	}
	return size
}

// readFIFOStream reads length bytes from the FIFO. It reports false, with no error, when less than
// a packet is waiting or when an overflow forced a reset.
func (mpu *Driver) readFIFOStream(ctx context.Context, length int) ([]byte, int, bool, error) {
	count, err := mpu.readWord(ctx, regFIFOCountH)
	if err != nil {
		return nil, 0, false, err
	}
	if int(count) < length {
		return nil, 0, false, nil
	}
	if int(count) > maxFIFO>>1 {
		status, err := mpu.readByte(ctx, regIntStatus)
		if err != nil {
			return nil, 0, false, err
		}
		if status&bitFIFOOverflw != 0 {
			mpu.stats.FIFOOverflows.Inc()
			mpu.logger.Warnw("FIFO overflow, resetting", "count", count)
			return nil, 0, false, mpu.ResetFIFO(ctx)
		}
	}
	data, err := mpu.readBlock(ctx, regFIFORW, length)
	if err != nil {
		return nil, 0, false, err
	}
	return data, int(count)/length - 1, true, nil
}

// ReadFIFO reads one packet of the sensors selected by ConfigureFIFO. The second result is false
// when no complete packet is waiting.
func (mpu *Driver) ReadFIFO(ctx context.Context) (FIFOSample, bool, error) {
	if mpu.state.DMPOn {
		return FIFOSample{}, false, ErrDMPActive
	}
	if mpu.state.Asleep() {
		return FIFOSample{}, false, ErrDeviceAsleep
	}
	mask := mpu.state.FIFOEnable
	size := fifoPacketSize(mask)
	if size == 0 {
		return FIFOSample{}, false, nil
	}

	data, more, ok, err := mpu.readFIFOStream(ctx, size)
	if err != nil || !ok {
		return FIFOSample{}, false, err
	}
	sample := FIFOSample{Sensors: mask, Timestamp: mpu.clk.Now(), More: more}

	index := 0
	if mask&SensorAccel != 0 {
		sample.Accel = vectorFromBytesBE(data[0:6])
		index = 6
	}
	for i, axis := range []SensorMask{SensorXGyro, SensorYGyro, SensorZGyro} {
		if mask&axis != 0 {
			sample.Gyro[i] = rutils.Int16FromBytesBE(data[index : index+2])
			index += 2
		}
	}
	return sample, true, nil
}
