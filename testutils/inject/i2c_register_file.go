package inject

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/mattjlewis/diozero-sub004/components/board/genericlinux/buses"
)

// RegisterWrite is one write transfer seen by a RegisterDevice.
type RegisterWrite struct {
	Register byte
	Data     []byte
}

// RegisterDevice is a simulated I2C peripheral with 256 auto-incrementing byte registers.
type RegisterDevice struct {
	Registers [256]byte
	// OnWrite, if set, sees every write first. Returning true means it was handled and is not
	// stored in Registers.
	OnWrite func(register byte, data []byte) bool
	// OnRead, if set, sees every read first. Returning true means the returned bytes are used
	// instead of Registers.
	OnRead func(register byte, count int) ([]byte, bool)
	// WriteErr, if set, is consulted before each write; a non-nil result fails the transfer.
	WriteErr func(register byte, data []byte) error

	Writes []RegisterWrite
}

// I2CRegisterFile is an I2C bus whose devices are RegisterDevices keyed by address.
type I2CRegisterFile struct {
	mu      sync.Mutex
	devices map[byte]*RegisterDevice
}

// NewI2CRegisterFile creates an empty bus.
func NewI2CRegisterFile() *I2CRegisterFile {
	return &I2CRegisterFile{devices: map[byte]*RegisterDevice{}}
}

// AddDevice attaches a new device at addr and returns it.
func (rf *I2CRegisterFile) AddDevice(addr byte) *RegisterDevice {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	dev := &RegisterDevice{}
	rf.devices[addr] = dev
	return dev
}

// Locked runs f while holding the bus lock, so a test can change device state while a driver
// polls the bus.
func (rf *I2CRegisterFile) Locked(f func()) {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	f()
}

// WriteCount returns how many write transfers the device at addr has received.
func (rf *I2CRegisterFile) WriteCount(addr byte) int {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if dev, ok := rf.devices[addr]; ok {
		return len(dev.Writes)
	}
	return 0
}

func (rf *I2CRegisterFile) write(addr, register byte, data []byte) error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	dev, ok := rf.devices[addr]
	if !ok {
		return errors.Errorf("no device at address 0x%02x", addr)
	}
	if dev.WriteErr != nil {
		if err := dev.WriteErr(register, data); err != nil {
			return err
		}
	}
	dev.Writes = append(dev.Writes, RegisterWrite{Register: register, Data: append([]byte(nil), data...)})
	if dev.OnWrite != nil && dev.OnWrite(register, data) {
		return nil
	}
	for i, b := range data {
		dev.Registers[register+byte(i)] = b
	}
	return nil
}

func (rf *I2CRegisterFile) read(addr, register byte, count int) ([]byte, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	dev, ok := rf.devices[addr]
	if !ok {
		return nil, errors.Errorf("no device at address 0x%02x", addr)
	}
	if dev.OnRead != nil {
		if data, handled := dev.OnRead(register, count); handled {
			return data, nil
		}
	}
	data := make([]byte, count)
	for i := range data {
		data[i] = dev.Registers[register+byte(i)]
	}
	return data, nil
}

// OpenHandle returns a handle on the device at addr. Transfers to an empty address fail.
func (rf *I2CRegisterFile) OpenHandle(addr byte) (buses.I2CHandle, error) {
	return &I2CHandle{
		ReadByteDataFunc: func(ctx context.Context, register byte) (byte, error) {
			data, err := rf.read(addr, register, 1)
			if err != nil {
				return 0, err
			}
			return data[0], nil
		},
		WriteByteDataFunc: func(ctx context.Context, register, data byte) error {
			return rf.write(addr, register, []byte{data})
		},
		ReadWordDataFunc: func(ctx context.Context, register byte) (uint16, error) {
			data, err := rf.read(addr, register, 2)
			if err != nil {
				return 0, err
			}
			return uint16(data[0])<<8 | uint16(data[1]), nil
		},
		WriteWordDataFunc: func(ctx context.Context, register byte, data uint16) error {
			return rf.write(addr, register, []byte{byte(data >> 8), byte(data)})
		},
		ReadBlockDataFunc: func(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
			return rf.read(addr, register, int(numBytes))
		},
		WriteBlockDataFunc: func(ctx context.Context, register byte, data []byte) error {
			return rf.write(addr, register, data)
		},
		CloseFunc: func() error { return nil },
	}, nil
}
