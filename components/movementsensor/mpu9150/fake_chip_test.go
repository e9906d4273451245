package mpu9150

import (
	"context"
	"testing"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/mattjlewis/diozero-sub004/logging"
	"github.com/mattjlewis/diozero-sub004/testutils/inject"
)

// fakeChip simulates the parts of an MPU-9150 the driver relies on: the register file, DMP memory
// behind BANK_SEL/MEM_R_W, the FIFO and the AK8975 behind bypass.
type fakeChip struct {
	bus *inject.I2CRegisterFile
	mpu *inject.RegisterDevice
	akm *inject.RegisterDevice

	mem        [1 << 16]byte
	fifo       []byte
	fifoResets int
	// Memory addresses whose next write lands with its first byte inverted.
	corrupt map[uint16]bool
}

func newFakeChip() *fakeChip {
	f := &fakeChip{bus: inject.NewI2CRegisterFile(), corrupt: map[uint16]bool{}}
	f.mpu = f.bus.AddDevice(DefaultAddress)
	f.mpu.Registers[regWhoAmI] = whoAmIValue
	f.mpu.OnWrite = f.onWrite
	f.mpu.OnRead = f.onRead

	f.akm = f.bus.AddDevice(akmAddress)
	f.akm.Registers[akmRegWhoAmI] = akmWhoAmIValue
	f.akm.Registers[akmRegASAX] = 128
	f.akm.Registers[akmRegASAX+1] = 128
	f.akm.Registers[akmRegASAX+2] = 128
	return f
}

func (f *fakeChip) memAddress() uint16 {
	return uint16(f.mpu.Registers[regBankSel])<<8 | uint16(f.mpu.Registers[regBankSel+1])
}

func (f *fakeChip) onWrite(register byte, data []byte) bool {
	switch register {
	case regMemRW:
		address := f.memAddress()
		for i, b := range data {
			if i == 0 && f.corrupt[address] {
				b ^= 0xFF
				delete(f.corrupt, address)
			}
			f.mem[address+uint16(i)] = b
		}
		return true
	case regUserCtrl:
		if data[0]&bitFIFORst != 0 {
			f.fifo = nil
			f.fifoResets++
		}
	}
	return false
}

func (f *fakeChip) onRead(register byte, count int) ([]byte, bool) {
	switch register {
	case regMemRW:
		address := f.memAddress()
		return append([]byte(nil), f.mem[address:int(address)+count]...), true
	case regFIFOCountH:
		n := len(f.fifo)
		return []byte{byte(n >> 8), byte(n)}, true
	case regFIFORW:
		out := make([]byte, count)
		copy(out, f.fifo)
		f.fifo = f.fifo[min(count, len(f.fifo)):]
		return out, true
	}
	return nil, false
}

func (f *fakeChip) pushFIFO(data ...[]byte) {
	f.bus.Locked(func() {
		for _, d := range data {
			f.fifo = append(f.fifo, d...)
		}
	})
}

func (f *fakeChip) resetCount() int {
	var n int
	f.bus.Locked(func() { n = f.fifoResets })
	return n
}

func (f *fakeChip) register(r byte) byte {
	var v byte
	f.bus.Locked(func() { v = f.mpu.Registers[r] })
	return v
}

func (f *fakeChip) memory(address uint16, length int) []byte {
	var out []byte
	f.bus.Locked(func() { out = append(out, f.mem[address:int(address)+length]...) })
	return out
}

func (f *fakeChip) setRegisters(start byte, data ...byte) {
	f.bus.Locked(func() {
		copy(f.mpu.Registers[start:], data)
	})
}

// newAwakeDriver runs the full bring-up against a fake chip and powers every sensor.
func newAwakeDriver(t *testing.T) (*Driver, *fakeChip) {
	t.Helper()
	f := newFakeChip()
	mpu := NewDriver(f.bus, DefaultAddress, clock.New(), logging.NewTestLogger(t))
	test.That(t, mpu.Init(context.Background()), test.ShouldBeNil)
	test.That(t, mpu.SetSensors(context.Background(), SensorAll), test.ShouldBeNil)
	return mpu, f
}

var testFirmware = func() []byte {
	code := make([]byte, 100)
	for i := range code {
		code[i] = byte(i*7 + 3)
	}
	return code
}()

// newRunningDMP loads a small image and turns the DMP on with features.
func newRunningDMP(t *testing.T, features Feature) (*DMP, *Driver, *fakeChip) {
	t.Helper()
	ctx := context.Background()
	mpu, f := newAwakeDriver(t)

	image, err := NewFirmwareImage(testFirmware, DefaultFirmwareStartAddress, DefaultDMPSampleRate)
	test.That(t, err, test.ShouldBeNil)
	_, err = mpu.LoadFirmware(ctx, image)
	test.That(t, err, test.ShouldBeNil)

	dmp := NewDMP(mpu, logging.NewTestLogger(t))
	test.That(t, dmp.EnableFeatures(ctx, features), test.ShouldBeNil)
	test.That(t, dmp.SetState(ctx, true), test.ShouldBeNil)
	return dmp, mpu, f
}

// quatBytes encodes a quaternion as the DMP does: four big-endian Q30 words.
func quatBytes(w, x, y, z int32) []byte {
	var out []byte
	for _, v := range []int32{w, x, y, z} {
		out = append(out, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	return out
}

func vectorBytes(x, y, z int16) []byte {
	return []byte{byte(x >> 8), byte(x), byte(y >> 8), byte(y), byte(z >> 8), byte(z)}
}
