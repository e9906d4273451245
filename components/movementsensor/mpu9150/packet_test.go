package mpu9150

import (
	"context"
	"testing"

	"go.viam.com/test"

	"github.com/mattjlewis/diozero-sub004/logging"
)

const (
	q30One         = 1 << 30
	streamFeatures = Feature6XLPQuat | FeatureSendRawAccel | FeatureSendCalGyro | FeatureGyroCal
)

func gesture(source, code byte) []byte {
	return []byte{0, source, 0, code}
}

func TestPacketLength(t *testing.T) {
	for _, tc := range []struct {
		features Feature
		length   int
	}{
		{0, 0},
		{FeaturePedometer | FeatureGyroCal, 0},
		{FeatureTap, 4},
		{FeatureSendRawAccel, 6},
		{FeatureSendRawAccel | FeatureSendRawGyro, 12},
		{FeatureSendRawGyro | FeatureSendCalGyro, 6},
		{FeatureLPQuat, 16},
		{Feature6XLPQuat | FeatureAndroidOrient, 20},
		{Feature6XLPQuat | FeatureTap | FeatureAndroidOrient, 20},
		{streamFeatures, 28},
		{Feature6XLPQuat | FeatureSendRawAccel | FeatureSendRawGyro | FeatureTap, 32},
	} {
		test.That(t, tc.features.packetLength(), test.ShouldEqual, tc.length)
	}
}

func TestDecodePacket(t *testing.T) {
	features := Feature6XLPQuat | FeatureSendRawAccel | FeatureSendRawGyro | FeatureTap
	var data []byte
	data = append(data, quatBytes(q30One, 0, 0, 0)...)
	data = append(data, vectorBytes(1, -2, 3)...)
	data = append(data, vectorBytes(-4, 5, -6)...)
	data = append(data, gesture(dmpIntSrcTap, byte(TapYUp)<<3)...)

	packet, err := decodePacket(features, data)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, packet.Quat, test.ShouldResemble, [4]int32{q30One, 0, 0, 0})
	test.That(t, packet.Accel, test.ShouldResemble, [3]int16{1, -2, 3})
	test.That(t, packet.Gyro, test.ShouldResemble, [3]int16{-4, 5, -6})
	test.That(t, packet.HasQuat(), test.ShouldBeTrue)
	test.That(t, packet.HasAccel(), test.ShouldBeTrue)
	test.That(t, packet.HasGyro(), test.ShouldBeTrue)
	test.That(t, packet.Events, test.ShouldResemble, []GestureEvent{TapEvent{Direction: TapYUp, Count: 1}})

	again, err := decodePacket(features, data)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, again, test.ShouldResemble, packet)

	_, err = decodePacket(features, data[:len(data)-1])
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDecodePacketSubsets(t *testing.T) {
	packet, err := decodePacket(FeatureSendRawAccel|FeatureSendRawGyro, append(vectorBytes(1, 2, 3), vectorBytes(4, 5, 6)...))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, packet.HasQuat(), test.ShouldBeFalse)
	test.That(t, packet.Accel, test.ShouldResemble, [3]int16{1, 2, 3})
	test.That(t, packet.Gyro, test.ShouldResemble, [3]int16{4, 5, 6})
	test.That(t, packet.Events, test.ShouldBeEmpty)

	packet, err = decodePacket(FeatureLPQuat, quatBytes(0, q30One, 0, 0))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, packet.Sensors, test.ShouldEqual, SensorQuat)
	test.That(t, packet.Quat, test.ShouldResemble, [4]int32{0, q30One, 0, 0})
}

func TestDecodePacketRejectsCorruptQuaternion(t *testing.T) {
	_, err := decodePacket(FeatureLPQuat, quatBytes(q30One, q30One, q30One, q30One))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, errCorruptQuaternion.Error())

	_, err = decodePacket(FeatureLPQuat, quatBytes(0, 0, 0, 0))
	test.That(t, err, test.ShouldNotBeNil)

	// Small drift from unit length is accepted.
	_, err = decodePacket(FeatureLPQuat, quatBytes(q30One-(1<<24), 1<<26, 0, 0))
	test.That(t, err, test.ShouldBeNil)
}

func TestDecodeGesture(t *testing.T) {
	test.That(t, decodeGesture(gesture(0, 0xFF)), test.ShouldBeEmpty)

	test.That(t, decodeGesture(gesture(dmpIntSrcTap, byte(TapXDown)<<3|2)), test.ShouldResemble,
		[]GestureEvent{TapEvent{Direction: TapXDown, Count: 3}})

	test.That(t, decodeGesture(gesture(dmpIntSrcOrientation, byte(ReversePortrait)<<6)), test.ShouldResemble,
		[]GestureEvent{OrientationEvent{Orientation: ReversePortrait}})

	events := decodeGesture(gesture(dmpIntSrcTap|dmpIntSrcOrientation, byte(Landscape)<<6|byte(TapZDown)<<3|3))
	test.That(t, events, test.ShouldResemble, []GestureEvent{
		TapEvent{Direction: TapZDown, Count: 4},
		OrientationEvent{Orientation: Landscape},
	})
	test.That(t, events[0].String(), test.ShouldEqual, "tap Z_DOWN x4")
	test.That(t, events[1].String(), test.ShouldEqual, "orientation LANDSCAPE")

	for _, code := range []byte{0, 7 << 3} {
		events := decodeGesture(gesture(dmpIntSrcTap, code))
		test.That(t, events, test.ShouldHaveLength, 1)
		test.That(t, events[0].(TapEvent).Direction, test.ShouldEqual, TapUnknown)
	}
}

func streamPacket(quat []byte) []byte {
	var data []byte
	data = append(data, quat...)
	data = append(data, vectorBytes(0, 0, 16384)...)
	data = append(data, vectorBytes(10, 20, 30)...)
	return data
}

func TestReadPacket(t *testing.T) {
	ctx := context.Background()
	dmp, mpu, f := newRunningDMP(t, streamFeatures)
	test.That(t, dmp.PacketLength(), test.ShouldEqual, 28)

	_, ok, err := dmp.ReadPacket(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)

	f.pushFIFO(streamPacket(quatBytes(q30One, 0, 0, 0)), streamPacket(quatBytes(0, 0, 0, q30One)),
		streamPacket(quatBytes(0, q30One, 0, 0)))

	packet, ok, err := dmp.ReadPacket(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, packet.More, test.ShouldEqual, 2)
	test.That(t, packet.Quat, test.ShouldResemble, [4]int32{q30One, 0, 0, 0})
	test.That(t, packet.Accel, test.ShouldResemble, [3]int16{0, 0, 16384})
	test.That(t, packet.Gyro, test.ShouldResemble, [3]int16{10, 20, 30})
	test.That(t, packet.Timestamp.IsZero(), test.ShouldBeFalse)

	packet, ok, err = dmp.ReadPacket(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, packet.More, test.ShouldEqual, 1)
	test.That(t, packet.Quat, test.ShouldResemble, [4]int32{0, 0, 0, q30One})
	test.That(t, mpu.Stats().PacketsDecoded.Load(), test.ShouldEqual, int64(2))
}

func TestReadPacketCorruptQuaternionResetsOnce(t *testing.T) {
	ctx := context.Background()
	dmp, mpu, f := newRunningDMP(t, streamFeatures)
	logger, logs := logging.NewObservedTestLogger(t)
	dmp.logger = logger

	f.pushFIFO(streamPacket(quatBytes(q30One, q30One, q30One, q30One)), streamPacket(quatBytes(q30One, 0, 0, 0)))
	resets := f.resetCount()

	_, ok, err := dmp.ReadPacket(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, f.resetCount(), test.ShouldEqual, resets+1)
	test.That(t, mpu.Stats().CorruptQuaternions.Load(), test.ShouldEqual, int64(1))
	test.That(t, logs.FilterMessage("discarding DMP packet").Len(), test.ShouldEqual, 1)

	// The reset flushed the packet queued behind the corrupt one.
	_, ok, err = dmp.ReadPacket(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, f.resetCount(), test.ShouldEqual, resets+1)
	test.That(t, mpu.State().DMPOn, test.ShouldBeTrue)
	test.That(t, f.register(regUserCtrl), test.ShouldEqual, byte(bitDMPEn|bitFIFOEn|bitAuxIFEn))
}

func TestReadPacketOverflow(t *testing.T) {
	ctx := context.Background()
	dmp, mpu, f := newRunningDMP(t, streamFeatures)

	for i := 0; i < 20; i++ {
		f.pushFIFO(streamPacket(quatBytes(q30One, 0, 0, 0)))
	}
	f.setRegisters(regIntStatus, bitFIFOOverflw)
	resets := f.resetCount()

	_, ok, err := dmp.ReadPacket(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, f.resetCount(), test.ShouldEqual, resets+1)
	test.That(t, mpu.Stats().FIFOOverflows.Load(), test.ShouldEqual, int64(1))
	test.That(t, mpu.Stats().PacketsDecoded.Load(), test.ShouldEqual, int64(0))
}

func TestReadPacketNeedsRunningDMP(t *testing.T) {
	mpu, _ := newAwakeDriver(t)
	dmp := NewDMP(mpu, logging.NewTestLogger(t))
	_, _, err := dmp.ReadPacket(context.Background())
	test.That(t, err, test.ShouldBeError, ErrDMPInactive)
}
