package mpu9150

import (
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

const (
	// DefaultCompassScale is the AK8975 resolution in microtesla per LSB.
	DefaultCompassScale = 0.3
	// DefaultQuaternionScale converts the DMP's Q30 fixed-point quaternion to unit length.
	DefaultQuaternionScale = 1.0 / (1 << 30)
)

// ImuSample is a reading in physical units.
type ImuSample struct {
	// Gyro is in degrees per second.
	Gyro r3.Vector
	// Accel is in g.
	Accel      r3.Vector
	Quaternion *quat.Number
	// Compass is in microtesla, already rotated onto the accelerometer's axes.
	Compass     *r3.Vector
	Temperature float64
	Timestamp   time.Time
}

// Normalizer converts raw counts to physical units for one range configuration.
type Normalizer struct {
	GyroSensitivity  float64
	AccelSensitivity float64
	CompassScale     float64
	QuaternionScale  float64
}

// NewNormalizer returns a normalizer for the given ranges. A zero quatScale selects
// DefaultQuaternionScale.
func NewNormalizer(gyro GyroFSR, accel AccelFSR, quatScale float64) Normalizer {
	if quatScale == 0 {
		quatScale = DefaultQuaternionScale
	}
	return Normalizer{
		GyroSensitivity:  gyro.Sensitivity(),
		AccelSensitivity: float64(accel.Sensitivity()),
		CompassScale:     DefaultCompassScale,
		QuaternionScale:  quatScale,
	}
}

func scaleVector(raw [3]int16, divisor float64) r3.Vector {
	return r3.Vector{X: float64(raw[0]), Y: float64(raw[1]), Z: float64(raw[2])}.Mul(1 / divisor)
}

// Gyro converts raw gyro counts to degrees per second.
func (n Normalizer) Gyro(raw [3]int16) r3.Vector {
	return scaleVector(raw, n.GyroSensitivity)
}

// Accel converts raw accelerometer counts to g.
func (n Normalizer) Accel(raw [3]int16) r3.Vector {
	return scaleVector(raw, n.AccelSensitivity)
}

// Compass converts adjusted AK8975 counts to microtesla. The magnetometer's X and Y are swapped
// relative to the accelerometer and its Z points the other way, so the result is (y, -x, -z).
func (n Normalizer) Compass(raw [3]int16) r3.Vector {
	return r3.Vector{
		X: float64(raw[1]),
		Y: -float64(raw[0]),
		Z: -float64(raw[2]),
	}.Mul(n.CompassScale)
}

// Quaternion converts the DMP's fixed-point quaternion, ordered w, x, y, z.
func (n Normalizer) Quaternion(raw [4]int32) quat.Number {
	return quat.Number{
		Real: float64(raw[0]) * n.QuaternionScale,
		Imag: float64(raw[1]) * n.QuaternionScale,
		Jmag: float64(raw[2]) * n.QuaternionScale,
		Kmag: float64(raw[3]) * n.QuaternionScale,
	}
}

// Packet converts a DMP packet. compass may be nil when no fresh magnetometer sample exists.
func (n Normalizer) Packet(p Packet, compass *[3]int16, temperature float64) ImuSample {
	sample := ImuSample{Temperature: temperature, Timestamp: p.Timestamp}
	if p.HasGyro() {
		sample.Gyro = n.Gyro(p.Gyro)
	}
	if p.HasAccel() {
		sample.Accel = n.Accel(p.Accel)
	}
	if p.HasQuat() {
		q := n.Quaternion(p.Quat)
		sample.Quaternion = &q
	}
	if compass != nil {
		c := n.Compass(*compass)
		sample.Compass = &c
	}
	return sample
}
