package buses

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// I2cBus is an I2C bus opened through periph.io. Only one handle can be open at a time; opening
// a second one blocks until the first is closed.
type I2cBus struct {
	mu     sync.Mutex
	name   string
	closer i2c.BusCloser
}

// NewI2cBus opens the named bus, e.g. "1" or "/dev/i2c-1". An empty name opens the first bus
// periph.io finds.
func NewI2cBus(name string) (*I2cBus, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "cannot initialize periph.io host drivers")
	}
	closer, err := i2creg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open I2C bus %q", name)
	}
	return &I2cBus{name: name, closer: closer}, nil
}

// OpenHandle locks the bus and returns a handle for the device at addr.
func (bus *I2cBus) OpenHandle(addr byte) (I2CHandle, error) {
	bus.mu.Lock()
	return &i2cHandle{device: &i2c.Dev{Bus: bus.closer, Addr: uint16(addr)}, parent: bus}, nil
}

// Close releases the underlying bus. Outstanding handles must be closed first.
func (bus *I2cBus) Close() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	return bus.closer.Close()
}

type i2cHandle struct {
	device *i2c.Dev
	parent *I2cBus
	closed bool
}

func (h *i2cHandle) tx(ctx context.Context, w, r []byte) error {
	if h.closed {
		return errors.New("I2C handle is closed")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.device.Tx(w, r)
}

func (h *i2cHandle) Write(ctx context.Context, tx []byte) error {
	return h.tx(ctx, tx, nil)
}

func (h *i2cHandle) Read(ctx context.Context, count int) ([]byte, error) {
	buffer := make([]byte, count)
	if err := h.tx(ctx, nil, buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}

func (h *i2cHandle) ReadByteData(ctx context.Context, register byte) (byte, error) {
	result, err := h.ReadBlockData(ctx, register, 1)
	if err != nil {
		return 0, err
	}
	return result[0], nil
}

func (h *i2cHandle) WriteByteData(ctx context.Context, register, data byte) error {
	return h.tx(ctx, []byte{register, data}, nil)
}

func (h *i2cHandle) ReadWordData(ctx context.Context, register byte) (uint16, error) {
	result, err := h.ReadBlockData(ctx, register, 2)
	if err != nil {
		return 0, err
	}
	return uint16(result[0])<<8 | uint16(result[1]), nil
}

func (h *i2cHandle) WriteWordData(ctx context.Context, register byte, data uint16) error {
	return h.tx(ctx, []byte{register, byte(data >> 8), byte(data)}, nil)
}

func (h *i2cHandle) ReadBlockData(ctx context.Context, register byte, numBytes uint8) ([]byte, error) {
	results := make([]byte, numBytes)
	if err := h.tx(ctx, []byte{register}, results); err != nil {
		return nil, errors.Wrapf(err, "reading %d bytes from register %#x at address %#x", numBytes, register, h.device.Addr)
	}
	return results, nil
}

func (h *i2cHandle) WriteBlockData(ctx context.Context, register byte, data []byte) error {
	// On register-based devices this is the register address followed by the payload.
	rawData := make([]byte, len(data)+1)
	rawData[0] = register
	copy(rawData[1:], data)
	if err := h.tx(ctx, rawData, nil); err != nil {
		return errors.Wrapf(err, "writing %d bytes to register %#x at address %#x", len(data), register, h.device.Addr)
	}
	return nil
}

func (h *i2cHandle) Close() error {
	if h.closed {
		return errors.New("I2C handle already closed")
	}
	h.closed = true
	h.parent.mu.Unlock()
	return nil
}
