package mpu9150

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// GyroFSR is a gyroscope full-scale range. The value is the register field, bits 4:3 of
// GYRO_CONFIG before shifting.
type GyroFSR int

// Gyro full-scale ranges, in degrees per second.
const (
	GyroFSR250 GyroFSR = iota
	GyroFSR500
	GyroFSR1000
	GyroFSR2000

	gyroFSRUnset GyroFSR = -1
)

var gyroFSRDPS = map[GyroFSR]int{GyroFSR250: 250, GyroFSR500: 500, GyroFSR1000: 1000, GyroFSR2000: 2000}

// GyroFSRFromDPS returns the range whose limit is exactly dps.
func GyroFSRFromDPS(dps int) (GyroFSR, error) {
	fsr, ok := lo.FindKey(gyroFSRDPS, dps)
	if !ok {
		return gyroFSRUnset, errors.Wrapf(ErrUnsupported, "gyro full-scale range %d dps", dps)
	}
	return fsr, nil
}

// DPS returns the range limit in degrees per second.
func (fsr GyroFSR) DPS() int {
	return gyroFSRDPS[fsr]
}

// Sensitivity returns LSB per degree per second.
func (fsr GyroFSR) Sensitivity() float64 {
	switch fsr {
	case GyroFSR250:
		return 131.0
	case GyroFSR500:
		return 65.5
	case GyroFSR1000:
		return 32.8
	case GyroFSR2000:
		return 16.4
	default:
		return 0
	}
}

func (fsr GyroFSR) registerValue() byte {
	return byte(fsr) << 3
}

func (fsr GyroFSR) String() string {
	if fsr == gyroFSRUnset {
		return "unset"
	}
	return fmt.Sprintf("%ddps", fsr.DPS())
}

// AccelFSR is an accelerometer full-scale range, bits 4:3 of ACCEL_CONFIG before shifting.
type AccelFSR int

// Accel full-scale ranges, in g.
const (
	AccelFSR2G AccelFSR = iota
	AccelFSR4G
	AccelFSR8G
	AccelFSR16G

	accelFSRUnset AccelFSR = -1
)

var accelFSRG = map[AccelFSR]int{AccelFSR2G: 2, AccelFSR4G: 4, AccelFSR8G: 8, AccelFSR16G: 16}

// AccelFSRFromG returns the range whose limit is exactly g.
func AccelFSRFromG(g int) (AccelFSR, error) {
	fsr, ok := lo.FindKey(accelFSRG, g)
	if !ok {
		return accelFSRUnset, errors.Wrapf(ErrUnsupported, "accel full-scale range %dg", g)
	}
	return fsr, nil
}

// G returns the range limit in g.
func (fsr AccelFSR) G() int {
	return accelFSRG[fsr]
}

// Sensitivity returns LSB per g.
func (fsr AccelFSR) Sensitivity() int {
	if fsr == accelFSRUnset {
		return 0
	}
	return 16384 >> uint(fsr)
}

func (fsr AccelFSR) registerValue() byte {
	return byte(fsr) << 3
}

func (fsr AccelFSR) String() string {
	if fsr == accelFSRUnset {
		return "unset"
	}
	return fmt.Sprintf("%dg", fsr.G())
}

// LPF is a digital low-pass filter setting; the value is the DLPF_CFG register field.
type LPF int

// Low-pass filter bandwidths.
const (
	LPF256Hz LPF = iota
	LPF188Hz
	LPF98Hz
	LPF42Hz
	LPF20Hz
	LPF10Hz
	LPF5Hz

	lpfUnset LPF = -1
)

var lpfHz = []int{256, 188, 98, 42, 20, 10, 5}

// LPFForFrequency returns the widest filter that does not exceed hz. Anything under 10Hz gets the
// narrowest filter the chip has, 5Hz. 256Hz is never chosen: it disables the 1kHz internal rate.
func LPFForFrequency(hz int) LPF {
	for lpf := LPF188Hz; lpf < LPF5Hz; lpf++ {
		if hz >= lpfHz[lpf] {
			return lpf
		}
	}
	return LPF5Hz
}

// Hz returns the filter bandwidth.
func (lpf LPF) Hz() int {
	if lpf < LPF256Hz || int(lpf) >= len(lpfHz) {
		return 0
	}
	return lpfHz[lpf]
}

func (lpf LPF) String() string {
	if lpf == lpfUnset {
		return "unset"
	}
	return fmt.Sprintf("%dHz", lpf.Hz())
}

// ClockSource is the PWR_MGMT_1 clock selection.
type ClockSource byte

// Clock sources.
const (
	ClockInternal ClockSource = 0
	ClockPLL      ClockSource = 1
)

// SensorMask selects sensors for power and FIFO configuration.
type SensorMask uint16

// Sensor bits. The compass bit has no FIFO slot and is stripped from FIFO masks.
const (
	SensorXGyro   SensorMask = 0x40
	SensorYGyro   SensorMask = 0x20
	SensorZGyro   SensorMask = 0x10
	SensorXYZGyro            = SensorXGyro | SensorYGyro | SensorZGyro
	SensorAccel   SensorMask = 0x08
	SensorCompass SensorMask = 0x01
	SensorQuat    SensorMask = 0x100

	// SensorAll powers every sensor on the package.
	SensorAll = SensorXYZGyro | SensorAccel | SensorCompass

	sensorsUnset SensorMask = 0xFF
)

var sensorNames = []lo.Tuple2[SensorMask, string]{
	{A: SensorXGyro, B: "gyro_x"},
	{A: SensorYGyro, B: "gyro_y"},
	{A: SensorZGyro, B: "gyro_z"},
	{A: SensorAccel, B: "accel"},
	{A: SensorCompass, B: "compass"},
	{A: SensorQuat, B: "quat"},
}

func (mask SensorMask) String() string {
	names := lo.FilterMap(sensorNames, func(entry lo.Tuple2[SensorMask, string], _ int) (string, bool) {
		return entry.B, mask&entry.A != 0
	})
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseSensors turns names such as "gyro", "accel" and "compass" into a mask.
func ParseSensors(names []string) (SensorMask, error) {
	var mask SensorMask
	for _, name := range names {
		switch strings.ToLower(name) {
		case "gyro":
			mask |= SensorXYZGyro
		case "all":
			mask |= SensorAll
		default:
			entry, ok := lo.Find(sensorNames, func(entry lo.Tuple2[SensorMask, string]) bool {
				return entry.B == strings.ToLower(name)
			})
			if !ok || entry.A == SensorQuat {
				return 0, errors.Wrapf(ErrUnsupported, "sensor %q", name)
			}
			mask |= entry.A
		}
	}
	return mask, nil
}

// Low-power accelerometer wake-up frequencies, PWR_MGMT_2 bits 7:6.
const (
	lpaWake1_25Hz = 0
	lpaWake5Hz    = 1
	lpaWake20Hz   = 2
	lpaWake40Hz   = 3
)
