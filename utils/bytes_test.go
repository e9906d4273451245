package utils

import (
	"testing"

	"go.viam.com/test"
)

func TestBigEndianConversions(t *testing.T) {
	test.That(t, Int16FromBytesBE([]byte{0xFF, 0xFE}), test.ShouldEqual, int16(-2))
	test.That(t, Int16FromBytesBE([]byte{0x40, 0x00}), test.ShouldEqual, int16(16384))
	test.That(t, Int16FromBytesLE([]byte{0x00, 0x40}), test.ShouldEqual, int16(16384))
	test.That(t, Int32FromBytesBE([]byte{0x40, 0x00, 0x00, 0x00}), test.ShouldEqual, int32(1<<30))
	test.That(t, Int32FromBytesBE([]byte{0xFF, 0xFF, 0xFF, 0xFF}), test.ShouldEqual, int32(-1))

	test.That(t, BytesFromUint16BE(0x0400), test.ShouldResemble, []byte{0x04, 0x00})
	test.That(t, BytesFromInt32BE(46850825), test.ShouldResemble, []byte{0x02, 0xCA, 0xE3, 0x09})
	test.That(t, BytesFromInt32BE(-2), test.ShouldResemble, []byte{0xFF, 0xFF, 0xFF, 0xFE})
}
