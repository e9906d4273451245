package utils

import "encoding/binary"

// Int16FromBytesBE converts two big-endian bytes into a signed 16-bit value.
func Int16FromBytesBE(bytes []byte) int16 {
	return int16(binary.BigEndian.Uint16(bytes))
}

// Int16FromBytesLE converts two little-endian bytes into a signed 16-bit value.
func Int16FromBytesLE(bytes []byte) int16 {
	return int16(binary.LittleEndian.Uint16(bytes))
}

// Int32FromBytesBE converts four big-endian bytes into a signed 32-bit value.
func Int32FromBytesBE(bytes []byte) int32 {
	return int32(binary.BigEndian.Uint32(bytes))
}

// BytesFromUint16BE returns the two big-endian bytes of value.
func BytesFromUint16BE(value uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, value)
}

// BytesFromInt32BE returns the four big-endian bytes of value.
func BytesFromInt32BE(value int32) []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(value))
}
