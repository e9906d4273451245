package buses

import (
	"context"
	"testing"

	"go.viam.com/test"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

func TestI2cHandleTransfers(t *testing.T) {
	ctx := context.Background()
	playback := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x68, W: []byte{0x75}, R: []byte{0x68}},
			{Addr: 0x68, W: []byte{0x6B, 0x40}},
			{Addr: 0x68, W: []byte{0x72}, R: []byte{0x01, 0x02}},
			{Addr: 0x68, W: []byte{0x70, 0x04, 0x00}},
			{Addr: 0x68, W: []byte{0x6D, 0x01, 0x10}},
			{Addr: 0x68, W: []byte{0x74}, R: []byte{1, 2, 3, 4}},
		},
		DontPanic: true,
	}
	bus := &I2cBus{name: "test", closer: playback}

	handle, err := bus.OpenHandle(0x68)
	test.That(t, err, test.ShouldBeNil)

	whoAmI, err := handle.ReadByteData(ctx, 0x75)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, whoAmI, test.ShouldEqual, byte(0x68))

	test.That(t, handle.WriteByteData(ctx, 0x6B, 0x40), test.ShouldBeNil)

	count, err := handle.ReadWordData(ctx, 0x72)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, count, test.ShouldEqual, uint16(0x0102))

	test.That(t, handle.WriteWordData(ctx, 0x70, 0x0400), test.ShouldBeNil)
	test.That(t, handle.WriteBlockData(ctx, 0x6D, []byte{0x01, 0x10}), test.ShouldBeNil)

	block, err := handle.ReadBlockData(ctx, 0x74, 4)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, block, test.ShouldResemble, []byte{1, 2, 3, 4})

	test.That(t, handle.Close(), test.ShouldBeNil)
	test.That(t, handle.Close(), test.ShouldNotBeNil)
	test.That(t, bus.Close(), test.ShouldBeNil)
}

func TestI2cHandleRejectsUseAfterClose(t *testing.T) {
	bus := &I2cBus{name: "test", closer: &i2ctest.Playback{DontPanic: true}}
	handle, err := bus.OpenHandle(0x68)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, handle.Close(), test.ShouldBeNil)

	_, err = handle.ReadByteData(context.Background(), 0x75)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "closed")
}

func TestI2cHandleHonoursCancelledContext(t *testing.T) {
	bus := &I2cBus{name: "test", closer: &i2ctest.Playback{DontPanic: true}}
	handle, err := bus.OpenHandle(0x68)
	test.That(t, err, test.ShouldBeNil)
	defer handle.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = handle.WriteByteData(ctx, 0x6B, 0)
	test.That(t, err, test.ShouldEqual, context.Canceled)
}

func TestI2CRegister(t *testing.T) {
	ctx := context.Background()
	playback := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x0C, W: []byte{0x0A, 0x01}},
			{Addr: 0x0C, W: []byte{0x0A}, R: []byte{0x01}},
		},
		DontPanic: true,
	}
	bus := &I2cBus{name: "test", closer: playback}
	handle, err := bus.OpenHandle(0x0C)
	test.That(t, err, test.ShouldBeNil)

	reg := &I2CRegister{Handle: handle, Register: 0x0A}
	test.That(t, reg.WriteByteData(ctx, 0x01), test.ShouldBeNil)
	value, err := reg.ReadByteData(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, value, test.ShouldEqual, byte(0x01))

	test.That(t, handle.Close(), test.ShouldBeNil)
	test.That(t, bus.Close(), test.ShouldBeNil)
}
