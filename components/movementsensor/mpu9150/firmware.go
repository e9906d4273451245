package mpu9150

import (
	"bytes"
	"context"
	"os"

	"github.com/pkg/errors"
)

const (
	firmwareChunkSize = 16
	// DefaultFirmwareStartAddress is where the InvenSense motion driver 6.12 image starts running.
	DefaultFirmwareStartAddress = 0x0400
	// DefaultDMPSampleRate is the rate the DMP image expects the sensors to run at.
	DefaultDMPSampleRate = 200
)

// FirmwareImage is a DMP program. It is immutable once created.
type FirmwareImage struct {
	code         []byte
	startAddress uint16
	sampleRate   int
}

// NewFirmwareImage copies code into a new image.
func NewFirmwareImage(code []byte, startAddress uint16, sampleRate int) (FirmwareImage, error) {
	if len(code) == 0 {
		return FirmwareImage{}, errors.New("empty firmware image")
	}
	if len(code) > 0x10000 {
		return FirmwareImage{}, errors.Errorf("firmware image of %d bytes does not fit in DMP memory", len(code))
	}
	if sampleRate <= 0 || sampleRate > DefaultDMPSampleRate {
		return FirmwareImage{}, errors.Wrapf(ErrUnsupported, "DMP sample rate %d", sampleRate)
	}
	return FirmwareImage{code: bytes.Clone(code), startAddress: startAddress, sampleRate: sampleRate}, nil
}

// ReadFirmwareImage loads an image from a file.
func ReadFirmwareImage(path string, startAddress uint16, sampleRate int) (FirmwareImage, error) {
	//nolint:gosec
	code, err := os.ReadFile(path)
	if err != nil {
		return FirmwareImage{}, errors.Wrap(err, "reading DMP firmware")
	}
	return NewFirmwareImage(code, startAddress, sampleRate)
}

// Size returns the image length in bytes.
func (img FirmwareImage) Size() int {
	return len(img.code)
}

// StartAddress returns the program start address written to DMP_CFG_1.
func (img FirmwareImage) StartAddress() uint16 {
	return img.startAddress
}

// SampleRate returns the sensor rate the image was built for.
func (img FirmwareImage) SampleRate() int {
	return img.sampleRate
}

// Bytes returns a copy of the program.
func (img FirmwareImage) Bytes() []byte {
	return bytes.Clone(img.code)
}

// LoadReport describes a firmware load.
type LoadReport struct {
	Chunks int
	// Mismatched holds the memory address of every chunk whose read-back differed.
	Mismatched    []uint16
	AlreadyLoaded bool
}

// checkBank refuses transfers that would run past the end of a 256-byte memory bank.
func checkBank(address uint16, length int) error {
	if int(address&0xFF)+length > memBankSize {
		return newConfigurationError("memory transfer",
			"%d bytes at 0x%04x cross a %d-byte bank boundary", length, address, memBankSize)
	}
	return nil
}

// WriteMem writes data into DMP memory at address, which is bank<<8 | offset.
func (mpu *Driver) WriteMem(ctx context.Context, address uint16, data []byte) error {
	if err := checkBank(address, len(data)); err != nil {
		return err
	}
	if mpu.state.Asleep() {
		return ErrDeviceAsleep
	}
	if err := mpu.writeBlock(ctx, regBankSel, []byte{byte(address >> 8), byte(address)}); err != nil {
		return err
	}
	return mpu.writeBlock(ctx, regMemRW, data)
}

// ReadMem reads length bytes of DMP memory at address. A whole bank takes two block reads.
func (mpu *Driver) ReadMem(ctx context.Context, address uint16, length int) ([]byte, error) {
	if err := checkBank(address, length); err != nil {
		return nil, err
	}
	if mpu.state.Asleep() {
		return nil, ErrDeviceAsleep
	}
	out := make([]byte, 0, length)
	for len(out) < length {
		at := address + uint16(len(out))
		if err := mpu.writeBlock(ctx, regBankSel, []byte{byte(at >> 8), byte(at)}); err != nil {
			return nil, err
		}
		chunk, err := mpu.readBlock(ctx, regMemRW, min(length-len(out), maxBlockRead))
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// LoadFirmware writes the image into DMP memory in 16-byte chunks, reading each chunk back. A chunk
// that reads back differently is logged and reported but does not stop the load. Loading twice in
// one session is a no-op.
func (mpu *Driver) LoadFirmware(ctx context.Context, image FirmwareImage) (LoadReport, error) {
	if mpu.state.DMPLoaded {
		mpu.logger.Warn("DMP firmware already loaded")
		return LoadReport{AlreadyLoaded: true}, nil
	}
	if image.Size() == 0 {
		return LoadReport{}, errors.New("empty firmware image")
	}

	var report LoadReport
	for offset := 0; offset < image.Size(); offset += firmwareChunkSize {
		end := min(offset+firmwareChunkSize, image.Size())
		chunk := image.code[offset:end]
		address := uint16(offset)

		if err := mpu.WriteMem(ctx, address, chunk); err != nil {
			return report, errors.Wrapf(err, "writing firmware chunk at 0x%04x", address)
		}
		readBack, err := mpu.ReadMem(ctx, address, len(chunk))
		if err != nil {
			return report, errors.Wrapf(err, "verifying firmware chunk at 0x%04x", address)
		}
		report.Chunks++
		if !bytes.Equal(chunk, readBack) {
			mpu.logger.Warnw("DMP firmware verify mismatch", "address", address,
				"wrote", chunk, "read", readBack)
			report.Mismatched = append(report.Mismatched, address)
		}
	}

	if err := mpu.writeWord(ctx, regPrgmStartH, image.StartAddress()); err != nil {
		return report, err
	}
	mpu.state.DMPLoaded = true
	mpu.state.DMPSampleRate = image.SampleRate()
	mpu.logger.Infow("DMP firmware loaded", "bytes", image.Size(), "chunks", report.Chunks,
		"mismatched", len(report.Mismatched))
	return report, nil
}
