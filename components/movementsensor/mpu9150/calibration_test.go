package mpu9150

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestCalibrateGyroBias(t *testing.T) {
	ctx := context.Background()
	mpu, f := newAwakeDriver(t)

	// 10 and -20 dps at +-2000dps.
	f.setRegisters(regGyroXOutH, vectorBytes(164, -328, 1)...)
	bias, err := mpu.CalibrateGyroBias(ctx, 5, time.Millisecond)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, bias, test.ShouldResemble, [3]int32{655360, -1310720, 3996})

	_, err = mpu.CalibrateGyroBias(ctx, 0, time.Millisecond)
	test.That(t, err, test.ShouldNotBeNil)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = mpu.CalibrateGyroBias(cancelled, 3, time.Hour)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}

func TestCalibrateGyroBiasNeedsGyro(t *testing.T) {
	ctx := context.Background()
	mpu, _ := newAwakeDriver(t)
	test.That(t, mpu.SetSensors(ctx, SensorAccel), test.ShouldBeNil)

	_, err := mpu.CalibrateGyroBias(ctx, 3, time.Millisecond)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBiasRegister(t *testing.T) {
	// 10 dps is 328 counts at +-1000dps.
	test.That(t, biasRegister([3]int32{655360, -655360, 0}), test.ShouldResemble, [3]int16{328, -328, 0})
}
