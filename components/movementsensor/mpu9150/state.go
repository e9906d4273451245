package mpu9150

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
)

// BypassState records whether the AK8975 is wired straight onto the host bus.
type BypassState int

// Bypass states. The chip's wiring is unknown until the first SetBypass.
const (
	BypassUnknown BypassState = iota
	BypassOff
	BypassOn
)

func bypassFor(enable bool) BypassState {
	if enable {
		return BypassOn
	}
	return BypassOff
}

const (
	rateUnset    = 0xFFFF
	dividerUnset = -1
	intUnset     = 0xFF

	resetSettle   = 100 * time.Millisecond
	sensorsSettle = 50 * time.Millisecond
	bypassSettle  = 3 * time.Millisecond
)

// DeviceConfigState is the driver's view of the chip configuration. Nothing is read back from the
// device, so every field is what the driver last wrote or an "unset" marker that forces the next
// write through.
type DeviceConfigState struct {
	GyroFSR           GyroFSR
	AccelFSR          AccelFSR
	LPF               LPF
	SampleRate        int
	SampleRateDivider int
	CompassSampleRate int
	CompassDivider    int
	Sensors           SensorMask
	FIFOEnable        SensorMask
	ClockSource       ClockSource
	Bypass            BypassState
	// IntEnable is the INT_ENABLE register value last written.
	IntEnable     byte
	ActiveLowInt  bool
	LatchedInt    bool
	LowPowerAccel bool
	DMPOn         bool
	DMPLoaded     bool
	DMPSampleRate int
}

// invalidatedState is the cache right after a reset: every setter is forced to write.
func invalidatedState() DeviceConfigState {
	return DeviceConfigState{
		GyroFSR:           gyroFSRUnset,
		AccelFSR:          accelFSRUnset,
		LPF:               lpfUnset,
		SampleRate:        rateUnset,
		SampleRateDivider: dividerUnset,
		CompassSampleRate: rateUnset,
		CompassDivider:    dividerUnset,
		Sensors:           sensorsUnset,
		FIFOEnable:        sensorsUnset,
		ClockSource:       ClockPLL,
		Bypass:            BypassUnknown,
		IntEnable:         intUnset,
		ActiveLowInt:      true,
	}
}

// Asleep reports whether every sensor is powered down.
func (st DeviceConfigState) Asleep() bool {
	return st.Sensors == 0
}

// InterruptsEnabled reports whether a data-ready or DMP interrupt is enabled.
func (st DeviceConfigState) InterruptsEnabled() bool {
	return st.IntEnable != 0 && st.IntEnable != intUnset
}

// String renders the cached configuration as a two-column table.
func (st DeviceConfigState) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Setting", "Value"})
	t.AppendRows([]table.Row{
		{"Gyro range", st.GyroFSR},
		{"Accel range", st.AccelFSR},
		{"Low pass filter", st.LPF},
		{"Sample rate", fmt.Sprintf("%dHz (divider %d)", st.SampleRate, st.SampleRateDivider)},
		{"Compass rate", fmt.Sprintf("%dHz (divider %d)", st.CompassSampleRate, st.CompassDivider)},
		{"Sensors", st.Sensors},
		{"FIFO", st.FIFOEnable},
		{"Bypass", st.Bypass == BypassOn},
		{"Low power accel", st.LowPowerAccel},
		{"DMP loaded", st.DMPLoaded},
		{"DMP on", st.DMPOn},
	})
	return t.Render()
}

// regWrite is a single register transfer, optionally followed by a settle delay.
type regWrite struct {
	register byte
	data     []byte
	settle   time.Duration
}

func byteWrite(register, value byte) regWrite {
	return regWrite{register: register, data: []byte{value}}
}

func (w regWrite) then(settle time.Duration) regWrite {
	w.settle = settle
	return w
}

func planGyroFSR(st DeviceConfigState, fsr GyroFSR) (DeviceConfigState, []regWrite, error) {
	if _, ok := gyroFSRDPS[fsr]; !ok {
		return st, nil, errors.Wrapf(ErrUnsupported, "gyro full-scale range %d", fsr)
	}
	if st.Asleep() {
		return st, nil, ErrDeviceAsleep
	}
	if st.GyroFSR == fsr {
		return st, nil, nil
	}
	st.GyroFSR = fsr
	return st, []regWrite{byteWrite(regGyroConfig, fsr.registerValue())}, nil
}

func planAccelFSR(st DeviceConfigState, fsr AccelFSR) (DeviceConfigState, []regWrite, error) {
	if _, ok := accelFSRG[fsr]; !ok {
		return st, nil, errors.Wrapf(ErrUnsupported, "accel full-scale range %d", fsr)
	}
	if st.Asleep() {
		return st, nil, ErrDeviceAsleep
	}
	if st.AccelFSR == fsr {
		return st, nil, nil
	}
	st.AccelFSR = fsr
	return st, []regWrite{byteWrite(regAccelConfig, fsr.registerValue())}, nil
}

func planLPF(st DeviceConfigState, hz int) (DeviceConfigState, []regWrite, error) {
	if st.Asleep() {
		return st, nil, ErrDeviceAsleep
	}
	lpf := LPFForFrequency(hz)
	if st.LPF == lpf {
		return st, nil, nil
	}
	st.LPF = lpf
	return st, []regWrite{byteWrite(regConfig, byte(lpf))}, nil
}

// clampSampleRate returns the divider for rate, clamped to what the 1kHz internal clock supports.
func clampSampleRate(rate int) (divider, actual int) {
	if rate < 4 {
		rate = 4
	} else if rate > 1000 {
		rate = 1000
	}
	divider = 1000/rate - 1
	return divider, 1000 / (1 + divider)
}

// planSampleRateDivider covers only the divider register; the compass rate and LPF follow from the
// new rate and are planned separately.
func planSampleRateDivider(st DeviceConfigState, rate int) (DeviceConfigState, []regWrite, error) {
	if st.Asleep() {
		return st, nil, ErrDeviceAsleep
	}
	if st.DMPOn {
		return st, nil, ErrDMPActive
	}
	divider, actual := clampSampleRate(rate)
	if st.SampleRateDivider == divider {
		return st, nil, nil
	}
	st.SampleRateDivider = divider
	st.SampleRate = actual
	return st, []regWrite{byteWrite(regSmplRateDiv, byte(divider))}, nil
}

func planCompassSampleRate(st DeviceConfigState, rate int) (DeviceConfigState, []regWrite, error) {
	if rate <= 0 || rate > st.SampleRate || rate > maxCompassSampleRate {
		return st, nil, errors.Wrapf(ErrUnsupported, "compass sample rate %d with sample rate %d", rate, st.SampleRate)
	}
	divider := st.SampleRate/rate - 1
	if st.CompassDivider == divider {
		return st, nil, nil
	}
	st.CompassDivider = divider
	st.CompassSampleRate = st.SampleRate / (divider + 1)
	return st, []regWrite{byteWrite(regSlv4Ctrl, byte(divider))}, nil
}

func intPinConfig(st DeviceConfigState) byte {
	var value byte
	if st.LatchedInt {
		value |= bitLatchEn | bitAnyRdClr
	}
	if st.Bypass == BypassOn {
		value |= bitBypassEn
	}
	if st.ActiveLowInt {
		value |= bitActiveLow
	}
	return value
}

func planIntLatched(st DeviceConfigState, enable bool) (DeviceConfigState, []regWrite) {
	if st.LatchedInt == enable {
		return st, nil
	}
	st.LatchedInt = enable
	return st, []regWrite{byteWrite(regIntPinCfg, intPinConfig(st))}
}

// planBypass needs the current USER_CTRL value because the I2C master bit shares the register
// with the FIFO and DMP bits.
func planBypass(st DeviceConfigState, enable bool, userCtrl byte) (DeviceConfigState, []regWrite) {
	if st.Bypass == bypassFor(enable) {
		return st, nil
	}
	if enable || st.Sensors&SensorCompass == 0 {
		userCtrl &^= bitAuxIFEn
	} else {
		userCtrl |= bitAuxIFEn
	}
	st.Bypass = bypassFor(enable)
	return st, []regWrite{
		byteWrite(regUserCtrl, userCtrl).then(bypassSettle),
		byteWrite(regIntPinCfg, intPinConfig(st)),
	}
}

func planIntEnable(st DeviceConfigState, enable bool) (DeviceConfigState, []regWrite, error) {
	var value byte
	switch {
	case st.DMPOn && enable:
		value = bitDMPIntEn
	case st.DMPOn:
	case st.Asleep():
		return st, nil, ErrDeviceAsleep
	case enable:
		value = bitDataRdyEn
	}
	if st.IntEnable == value {
		return st, nil, nil
	}
	st.IntEnable = value
	return st, []regWrite{byteWrite(regIntEnable, value)}, nil
}

// planPower derives PWR_MGMT_1 and PWR_MGMT_2 for a sensor mask. Any gyro needs the PLL; anything
// else runs from the internal oscillator; nothing at all puts the chip to sleep.
func planPower(mask SensorMask) (pwr1, pwr2 byte, clock ClockSource) {
	switch {
	case mask&SensorXYZGyro != 0:
		clock = ClockPLL
		pwr1 = byte(ClockPLL)
	case mask != 0:
		clock = ClockInternal
		pwr1 = byte(ClockInternal)
	default:
		clock = ClockInternal
		pwr1 = bitSleep
	}

	if mask&SensorXGyro == 0 {
		pwr2 |= bitStbyXG
	}
	if mask&SensorYGyro == 0 {
		pwr2 |= bitStbyYG
	}
	if mask&SensorZGyro == 0 {
		pwr2 |= bitStbyZG
	}
	if mask&SensorAccel == 0 {
		pwr2 |= bitStbyXYZA
	}
	return pwr1, pwr2, clock
}

// planSensorsUserCtrl returns the value for the auxiliary master's AK8975 control slot and the new
// USER_CTRL, which keeps the I2C master running only while the compass is wanted.
func planSensorsUserCtrl(userCtrl byte, mask SensorMask, dmpOn bool) (akmControl, newUserCtrl byte) {
	if mask&SensorCompass != 0 {
		akmControl = akmSingleMeas
		userCtrl |= bitAuxIFEn
	} else {
		akmControl = akmPowerDown
		userCtrl &^= bitAuxIFEn
	}
	if dmpOn {
		userCtrl |= bitDMPEn
	} else {
		userCtrl &^= bitDMPEn
	}
	return akmControl, userCtrl
}

// planResetFIFO flushes the FIFO and re-enables whichever producer owns it.
func planResetFIFO(st DeviceConfigState) ([]regWrite, error) {
	if st.Asleep() {
		return nil, ErrDeviceAsleep
	}
	writes := []regWrite{
		byteWrite(regIntEnable, 0),
		byteWrite(regFIFOEn, 0),
		byteWrite(regUserCtrl, 0),
	}

	compassOn := st.Sensors&SensorCompass != 0
	if st.DMPOn {
		userCtrl := byte(bitDMPEn | bitFIFOEn)
		if compassOn {
			userCtrl |= bitAuxIFEn
		}
		var intEnable byte
		if st.InterruptsEnabled() {
			intEnable = bitDMPIntEn
		}
		return append(writes,
			byteWrite(regUserCtrl, bitFIFORst|bitDMPRst).then(sensorsSettle),
			byteWrite(regUserCtrl, userCtrl),
			byteWrite(regIntEnable, intEnable),
			byteWrite(regFIFOEn, 0),
		), nil
	}

	userCtrl := byte(bitFIFOEn)
	if st.Bypass != BypassOn && compassOn {
		userCtrl |= bitAuxIFEn
	}
	var intEnable byte
	if st.InterruptsEnabled() {
		intEnable = bitDataRdyEn
	}
	return append(writes,
		byteWrite(regUserCtrl, bitFIFORst),
		byteWrite(regUserCtrl, userCtrl).then(sensorsSettle),
		byteWrite(regIntEnable, intEnable),
		byteWrite(regFIFOEn, byte(st.FIFOEnable)),
	), nil
}

// lowPowerAccelSettings maps a low-power wake rate to the LPF and PWR_MGMT_2 wake field.
func lowPowerAccelSettings(rate int) (lpfHz int, wake byte) {
	switch {
	case rate == 1:
		return 5, lpaWake1_25Hz
	case rate <= 5:
		return 5, lpaWake5Hz
	case rate <= 20:
		return 10, lpaWake20Hz
	default:
		return 20, lpaWake40Hz
	}
}
