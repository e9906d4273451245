package mpu9150

import (
	"context"
	"time"

	"github.com/pkg/errors"

	rutils "github.com/mattjlewis/diozero-sub004/utils"
)

var errCorruptQuaternion = errors.New("quaternion magnitude out of range")

// Packet is one decoded DMP FIFO packet. Sensors says which of Quat, Accel and Gyro were present.
type Packet struct {
	Quat      [4]int32
	Accel     [3]int16
	Gyro      [3]int16
	Sensors   SensorMask
	Events    []GestureEvent
	Timestamp time.Time
	// More is how many further complete packets are waiting.
	More int
}

// HasQuat reports whether the packet carries a quaternion.
func (p Packet) HasQuat() bool {
	return p.Sensors&SensorQuat != 0
}

// HasAccel reports whether the packet carries accelerometer data.
func (p Packet) HasAccel() bool {
	return p.Sensors&SensorAccel != 0
}

// HasGyro reports whether the packet carries gyro data.
func (p Packet) HasGyro() bool {
	return p.Sensors&SensorXYZGyro != 0
}

// decodePacket parses one packet of exactly features.packetLength() bytes.
func decodePacket(features Feature, data []byte) (Packet, error) {
	if len(data) != features.packetLength() {
		return Packet{}, errors.Errorf("DMP packet is %d bytes, features %v need %d",
			len(data), features, features.packetLength())
	}

	var packet Packet
	index := 0
	if features.Any(FeatureLPQuat | Feature6XLPQuat) {
		var magSq int64
		for i := range packet.Quat {
			packet.Quat[i] = rutils.Int32FromBytesBE(data[index : index+4])
			index += 4
			shifted := int64(packet.Quat[i] >> 16)
			magSq += shifted * shifted
		}
		// The firmware's Q30 quaternion should have unit length; anything far off means the FIFO
		// is misaligned.
		if magSq < dmpQuatMagSqMin || magSq > dmpQuatMagSqMax {
			return Packet{}, errors.Wrapf(errCorruptQuaternion, "magnitude squared %d", magSq)
		}
		packet.Sensors |= SensorQuat
	}
	if features.Any(FeatureSendRawAccel) {
		packet.Accel = vectorFromBytesBE(data[index : index+6])
		index += 6
		packet.Sensors |= SensorAccel
	}
	if features.Any(FeatureSendAnyGyro) {
		packet.Gyro = vectorFromBytesBE(data[index : index+6])
		index += 6
		packet.Sensors |= SensorXYZGyro
	}
	if features.Any(FeatureTap | FeatureAndroidOrient) {
		packet.Events = decodeGesture(data[index : index+4])
	}
	return packet, nil
}

// ReadPacket reads one packet from the DMP FIFO. The second result is false when no complete
// packet is waiting, or when a FIFO overflow or corrupt quaternion forced a reset.
func (dmp *DMP) ReadPacket(ctx context.Context) (Packet, bool, error) {
	if !dmp.mpu.state.DMPOn {
		return Packet{}, false, ErrDMPInactive
	}
	if dmp.mpu.state.Asleep() {
		return Packet{}, false, ErrDeviceAsleep
	}
	if dmp.packetLength == 0 {
		return Packet{}, false, nil
	}

	data, more, ok, err := dmp.mpu.readFIFOStream(ctx, dmp.packetLength)
	if err != nil || !ok {
		return Packet{}, false, err
	}
	timestamp := dmp.mpu.clk.Now()

	packet, err := decodePacket(dmp.features, data)
	if errors.Is(err, errCorruptQuaternion) {
		dmp.mpu.stats.CorruptQuaternions.Inc()
		dmp.logger.Warnw("discarding DMP packet", "error", err)
		return Packet{}, false, dmp.mpu.ResetFIFO(ctx)
	}
	if err != nil {
		return Packet{}, false, err
	}
	dmp.mpu.stats.PacketsDecoded.Inc()
	packet.Timestamp = timestamp
	packet.More = more
	return packet, true, nil
}
