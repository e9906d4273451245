package mpu9150

import (
	"context"

	"github.com/pkg/errors"

	"github.com/mattjlewis/diozero-sub004/logging"
	rutils "github.com/mattjlewis/diozero-sub004/utils"
)

// InterruptMode selects when the DMP raises its interrupt.
type InterruptMode int

const (
	// InterruptGesture fires only on tap and orientation events.
	InterruptGesture InterruptMode = 1
	// InterruptContinuous fires for every FIFO packet.
	InterruptContinuous InterruptMode = 2
)

// DMP drives the digital motion processor through a Driver.
type DMP struct {
	mpu    *Driver
	logger logging.Logger

	orient       uint16
	features     Feature
	fifoRate     int
	packetLength int
}

// NewDMP creates the DMP controller for a driver. The orientation starts as identity.
func NewDMP(mpu *Driver, logger logging.Logger) *DMP {
	return &DMP{
		mpu:      mpu,
		logger:   logger,
		orient:   IdentityOrientationScalar,
		fifoRate: DefaultDMPSampleRate,
	}
}

// LoadFirmware loads the DMP program.
func (dmp *DMP) LoadFirmware(ctx context.Context, image FirmwareImage) (LoadReport, error) {
	return dmp.mpu.LoadFirmware(ctx, image)
}

// SetState starts or stops the DMP.
func (dmp *DMP) SetState(ctx context.Context, enable bool) error {
	return dmp.mpu.SetDMPState(ctx, enable)
}

// Features returns the enabled feature mask, which always includes the pedometer.
func (dmp *DMP) Features() Feature {
	return dmp.features
}

// PacketLength returns the size of one FIFO packet for the enabled features.
func (dmp *DMP) PacketLength() int {
	return dmp.packetLength
}

// FIFORate returns the rate the DMP pushes packets at.
func (dmp *DMP) FIFORate() int {
	return dmp.fifoRate
}

// Orientation returns the orientation scalar last written.
func (dmp *DMP) Orientation() uint16 {
	return dmp.orient
}

// SetOrientation programs the chip-to-body axis mapping.
func (dmp *DMP) SetOrientation(ctx context.Context, m OrientationMatrix) error {
	scalar, err := m.Scalar()
	if err != nil {
		return err
	}
	return dmp.SetOrientationScalar(ctx, scalar)
}

// SetOrientationScalar is SetOrientation for a packed scalar.
func (dmp *DMP) SetOrientationScalar(ctx context.Context, scalar uint16) error {
	if _, err := OrientationMatrixFromScalar(scalar); err != nil {
		return err
	}
	gyroAxes := []byte{0x4C, 0xCD, 0x6C}
	accelAxes := []byte{0x0C, 0xC9, 0x2C}
	gyroSigns := []byte{0x36, 0x56, 0x76}
	accelSigns := []byte{0x26, 0x46, 0x66}

	gyroRegs := make([]byte, 3)
	accelRegs := make([]byte, 3)
	for row := range gyroRegs {
		axis, _ := orientationAxis(scalar, row)
		gyroRegs[row] = gyroAxes[axis]
		accelRegs[row] = accelAxes[axis]
	}
	if err := dmp.mpu.WriteMem(ctx, fcfg1, gyroRegs); err != nil {
		return err
	}
	if err := dmp.mpu.WriteMem(ctx, fcfg2, accelRegs); err != nil {
		return err
	}

	for row := range gyroRegs {
		gyroRegs[row] = gyroSigns[row]
		accelRegs[row] = accelSigns[row]
		if _, negative := orientationAxis(scalar, row); negative {
			gyroRegs[row] |= 1
			accelRegs[row] |= 1
		}
	}
	if err := dmp.mpu.WriteMem(ctx, fcfg3, gyroRegs); err != nil {
		return err
	}
	if err := dmp.mpu.WriteMem(ctx, fcfg7, accelRegs); err != nil {
		return err
	}
	dmp.orient = scalar
	return nil
}

// PushGyroBias hands a gyro bias, in Q16 degrees per second in the chip frame, to the DMP.
func (dmp *DMP) PushGyroBias(ctx context.Context, bias [3]int32) error {
	body := toBody(dmp.orient, [3]int64{int64(bias[0]), int64(bias[1]), int64(bias[2])})
	for i, address := range []uint16{dExtGyroBiasX, dExtGyroBiasY, dExtGyroBiasZ} {
		scaled := int32((body[i] * gyroScaleFactor) >> 30)
		if err := dmp.mpu.WriteMem(ctx, address, rutils.BytesFromInt32BE(scaled)); err != nil {
			return err
		}
	}
	return nil
}

// PushAccelBias hands an accel bias, in Q16 g in the chip frame, to the DMP.
func (dmp *DMP) PushAccelBias(ctx context.Context, bias [3]int32) error {
	sf := int64(dmp.mpu.state.AccelFSR.Sensitivity()) << 15
	body := toBody(dmp.orient, [3]int64{int64(bias[0]), int64(bias[1]), int64(bias[2])})
	data := make([]byte, 0, 12)
	for _, v := range body {
		data = append(data, rutils.BytesFromInt32BE(int32((v*sf)>>30))...)
	}
	return dmp.mpu.WriteMem(ctx, dAccelBias, data)
}

// SetFIFORate sets how often the DMP pushes packets. It cannot exceed the DMP sample rate.
func (dmp *DMP) SetFIFORate(ctx context.Context, rate int) error {
	if rate <= 0 || rate > dmpMaxFIFORate {
		return errors.Wrapf(ErrUnsupported, "DMP FIFO rate %d", rate)
	}
	divider := uint16(DefaultDMPSampleRate/rate - 1)
	if err := dmp.mpu.WriteMem(ctx, d0_22, rutils.BytesFromUint16BE(divider)); err != nil {
		return err
	}
	if err := dmp.mpu.WriteMem(ctx, cfg6, seqFIFORate); err != nil {
		return err
	}
	dmp.fifoRate = rate
	return nil
}

// SetInterruptMode selects gesture-only or per-packet interrupts.
func (dmp *DMP) SetInterruptMode(ctx context.Context, mode InterruptMode) error {
	switch mode {
	case InterruptContinuous:
		return dmp.mpu.WriteMem(ctx, cfgFIFOOnEvent, seqIntContinuous)
	case InterruptGesture:
		return dmp.mpu.WriteMem(ctx, cfgFIFOOnEvent, seqIntGesture)
	default:
		return errors.Wrapf(ErrUnsupported, "DMP interrupt mode %d", mode)
	}
}

// EnableGyroCal turns the DMP's continuous gyro calibration on or off.
func (dmp *DMP) EnableGyroCal(ctx context.Context, enable bool) error {
	if enable {
		return dmp.mpu.WriteMem(ctx, cfgMotionBias, seqGyroCalOn)
	}
	return dmp.mpu.WriteMem(ctx, cfgMotionBias, seqGyroCalOff)
}

// EnableLPQuat turns on the 3-axis (gyro only) quaternion.
func (dmp *DMP) EnableLPQuat(ctx context.Context, enable bool) error {
	seq := seqLPQuatOff
	if enable {
		seq = seqLPQuatOn
	}
	if err := dmp.mpu.WriteMem(ctx, cfgLPQuat, seq); err != nil {
		return err
	}
	return dmp.mpu.ResetFIFO(ctx)
}

// Enable6XLPQuat turns on the 6-axis (gyro and accel) quaternion.
func (dmp *DMP) Enable6XLPQuat(ctx context.Context, enable bool) error {
	seq := seq6XLPQuatOff
	if enable {
		seq = seq6XLPQuatOn
	}
	if err := dmp.mpu.WriteMem(ctx, cfg8, seq); err != nil {
		return err
	}
	return dmp.mpu.ResetFIFO(ctx)
}

// EnableFeatures switches the DMP to exactly the features in mask, plus the pedometer which the
// firmware always runs. Both quaternion modes at once are refused before anything is written.
func (dmp *DMP) EnableFeatures(ctx context.Context, mask Feature) error {
	if err := mask.validate(); err != nil {
		return err
	}

	// The gyro scale factor is what the firmware uses to convert gyro data.
	if err := dmp.mpu.WriteMem(ctx, d0_104, rutils.BytesFromInt32BE(gyroScaleFactor)); err != nil {
		return err
	}

	// Which sensor data is sent to the FIFO.
	routing := []byte{0xA3, 0xA3, 0xA3, 0xA3, 0xA3, 0xA3, 0xA3, 0xA3, 0xA3, 0xA3}
	if mask.Any(FeatureSendRawAccel) {
		copy(routing[1:4], []byte{0xC0, 0xC8, 0xC2})
	}
	if mask.Any(FeatureSendAnyGyro) {
		copy(routing[4:7], []byte{0xC4, 0xCC, 0xC6})
	}
	if err := dmp.mpu.WriteMem(ctx, cfg15, routing); err != nil {
		return err
	}

	gestures := byte(0xD8)
	if mask.Any(FeatureTap | FeatureAndroidOrient) {
		gestures = 0x20
	}
	if err := dmp.mpu.WriteMem(ctx, cfg27, []byte{gestures}); err != nil {
		return err
	}

	if err := dmp.EnableGyroCal(ctx, mask.Any(FeatureGyroCal)); err != nil {
		return err
	}

	if mask.Any(FeatureSendAnyGyro) {
		seq := seqSendRawGyro
		if mask.Any(FeatureSendCalGyro) {
			seq = seqSendCalGyro
		}
		if err := dmp.mpu.WriteMem(ctx, cfgGyroRawData, seq); err != nil {
			return err
		}
	}

	if mask.Any(FeatureTap) {
		if err := dmp.mpu.WriteMem(ctx, cfg20, []byte{0xF8}); err != nil {
			return err
		}
		if err := dmp.applyTapDefaults(ctx); err != nil {
			return err
		}
	} else if err := dmp.mpu.WriteMem(ctx, cfg20, []byte{0xD8}); err != nil {
		return err
	}

	orient := byte(0xD8)
	if mask.Any(FeatureAndroidOrient) {
		orient = 0xD9
	}
	if err := dmp.mpu.WriteMem(ctx, cfgAndroidOrientInt, []byte{orient}); err != nil {
		return err
	}

	if err := dmp.EnableLPQuat(ctx, mask.Any(FeatureLPQuat)); err != nil {
		return err
	}
	if err := dmp.Enable6XLPQuat(ctx, mask.Any(Feature6XLPQuat)); err != nil {
		return err
	}

	// The mask and the packet length always change together.
	dmp.features = mask | FeaturePedometer
	dmp.packetLength = mask.packetLength()
	if err := dmp.mpu.ResetFIFO(ctx); err != nil {
		return err
	}
	dmp.logger.Debugw("DMP features enabled", "features", dmp.features, "packet_length", dmp.packetLength)
	return nil
}
