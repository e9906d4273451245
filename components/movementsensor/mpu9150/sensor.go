package mpu9150

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/num/quat"

	"github.com/mattjlewis/diozero-sub004/components/board/genericlinux/buses"
	"github.com/mattjlewis/diozero-sub004/components/movementsensor"
	"github.com/mattjlewis/diozero-sub004/logging"
	rutils "github.com/mattjlewis/diozero-sub004/utils"
)

const (
	eventBuffer       = 32
	maxPacketsPerPoll = 16
	calibrationCount  = 50
	pollErrorLogEvery = time.Second
)

// ErrOrientationUnavailable is returned by Orientation when no quaternion is being produced.
var ErrOrientationUnavailable = errors.New("orientation needs a DMP quaternion feature")

// Sensor polls an MPU-9150 in the background and keeps the latest normalized sample.
type Sensor struct {
	mpu        *Driver
	dmp        *DMP
	normalizer Normalizer
	sensors    SensorMask
	logger     logging.Logger

	// Lock the mutex before touching the chip or the fields below.
	mu      sync.Mutex
	latest  ImuSample
	haveQ   bool
	compass *r3.Vector
	closed  bool

	// Stores the most recent error from the background goroutine.
	err *movementsensor.LastError

	// Poll errors are logged at most once per pollErrorLogEvery; the rest are only counted.
	errLog          *rate.Limiter
	suppressedError int

	events        chan GestureEvent
	droppedEvents atomic.Int64
	workers       *rutils.StoppableWorkers
}

// NewSensor brings up the chip described by cfg and starts polling it.
func NewSensor(ctx context.Context, bus buses.I2C, cfg *Config, clk clock.Clock, logger logging.Logger) (*Sensor, error) {
	if _, err := cfg.Validate("mpu9150"); err != nil {
		return nil, err
	}
	gyroFSR, _ := cfg.gyroFSR()
	accelFSR, _ := cfg.accelFSR()
	sensors, _ := cfg.sensors()

	address := cfg.address()
	logger.Debugf("Using address 0x%02x for MPU9150 sensor", address)

	mpu := NewDriver(bus, address, clk, logger)
	if err := mpu.Init(ctx); err != nil {
		return nil, errors.Wrapf(err, "initializing MPU9150 on bus %s", cfg.I2CBus)
	}
	if !mpu.CompassFound() {
		sensors &^= SensorCompass
	}

	s := &Sensor{
		mpu:     mpu,
		sensors: sensors,
		logger:  logger,
		err:     movementsensor.NewLastError(1, 1),
		errLog:  rate.NewLimiter(rate.Every(pollErrorLogEvery), 1),
		events:  make(chan GestureEvent, eventBuffer),
	}
	if err := s.configure(ctx, cfg, gyroFSR, accelFSR); err != nil {
		return nil, multierr.Combine(err, mpu.Close(ctx))
	}
	s.normalizer = NewNormalizer(gyroFSR, accelFSR, cfg.QuaternionScale)

	interval := cfg.pollInterval()
	s.workers = rutils.NewStoppableWorkers(func(ctx context.Context) {
		ticker := mpu.Clock().Ticker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.poll(ctx)
			}
		}
	})
	return s, nil
}

func (s *Sensor) configure(ctx context.Context, cfg *Config, gyroFSR GyroFSR, accelFSR AccelFSR) error {
	if err := s.mpu.SetSensors(ctx, s.sensors); err != nil {
		return err
	}
	if err := s.mpu.SetGyroFSR(ctx, gyroFSR); err != nil {
		return err
	}
	if err := s.mpu.SetAccelFSR(ctx, accelFSR); err != nil {
		return err
	}
	if err := s.mpu.SetSampleRate(ctx, cfg.sampleRate()); err != nil {
		return err
	}
	if s.sensors&SensorCompass != 0 {
		if err := s.mpu.SetCompassSampleRate(ctx, min(cfg.compassRate(), s.mpu.State().SampleRate)); err != nil {
			return err
		}
	}

	var gyroBias [3]int32
	if cfg.CalibrateGyro && s.sensors&SensorXYZGyro == SensorXYZGyro {
		bias, err := s.mpu.CalibrateGyroBias(ctx, calibrationCount, cfg.pollInterval())
		if err != nil {
			return err
		}
		gyroBias = bias
	}

	if cfg.FirmwarePath == "" {
		if cfg.CalibrateGyro {
			if err := s.mpu.SetGyroBiasReg(ctx, biasRegister(gyroBias)); err != nil {
				return err
			}
		}
		return s.mpu.ConfigureFIFO(ctx, 0)
	}
	return s.configureDMP(ctx, cfg, gyroBias)
}

// biasRegister converts a Q16 dps bias to the +-1000dps format of the gyro offset registers.
func biasRegister(bias [3]int32) [3]int16 {
	var reg [3]int16
	for i, v := range bias {
		reg[i] = int16(math.Round(float64(v) / 65536 * GyroFSR1000.Sensitivity()))
	}
	return reg
}

func (s *Sensor) configureDMP(ctx context.Context, cfg *Config, gyroBias [3]int32) error {
	features, _ := cfg.dmpFeatures()
	mode, _ := cfg.interruptMode()
	orientation, _ := cfg.orientation()

	image, err := ReadFirmwareImage(cfg.FirmwarePath, cfg.firmwareStartAddress(), DefaultDMPSampleRate)
	if err != nil {
		return err
	}

	s.dmp = NewDMP(s.mpu, s.logger.Sublogger("dmp"))
	report, err := s.dmp.LoadFirmware(ctx, image)
	if err != nil {
		return err
	}
	if len(report.Mismatched) > 0 {
		s.logger.Warnw("DMP firmware verify found mismatched chunks; continuing", "chunks", report.Mismatched)
	}
	if err := s.dmp.SetOrientation(ctx, orientation); err != nil {
		return err
	}
	if cfg.CalibrateGyro {
		if err := s.dmp.PushGyroBias(ctx, gyroBias); err != nil {
			return err
		}
	}
	if err := s.dmp.EnableFeatures(ctx, features); err != nil {
		return err
	}
	if err := s.dmp.SetFIFORate(ctx, cfg.dmpFIFORate()); err != nil {
		return err
	}
	if err := s.dmp.SetInterruptMode(ctx, mode); err != nil {
		return err
	}
	return s.dmp.SetState(ctx, true)
}

func (s *Sensor) poll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.pollLocked(ctx)
	if err != nil && ctx.Err() == nil {
		if s.errLog.Allow() {
			s.logger.Warnw("error reading MPU9150 sensor", "error", err, "suppressed", s.suppressedError)
			s.suppressedError = 0
		} else {
			s.suppressedError++
		}
	}
	s.err.Set(err)
}

func (s *Sensor) pollLocked(ctx context.Context) error {
	temperature, err := s.mpu.Temperature(ctx)
	if err != nil {
		return err
	}

	if s.sensors&SensorCompass != 0 {
		raw, ok, err := s.mpu.CompassReg(ctx)
		if err != nil {
			return err
		}
		if ok {
			c := s.normalizer.Compass(raw)
			s.compass = &c
		}
	}

	if s.dmp != nil {
		return s.pollDMP(ctx, temperature)
	}

	sample := ImuSample{Temperature: temperature, Timestamp: s.mpu.Clock().Now(), Compass: s.compass}
	if s.sensors&SensorXYZGyro != 0 {
		raw, err := s.mpu.GyroReg(ctx)
		if err != nil {
			return err
		}
		sample.Gyro = s.normalizer.Gyro(raw)
	}
	if s.sensors&SensorAccel != 0 {
		raw, err := s.mpu.AccelReg(ctx)
		if err != nil {
			return err
		}
		sample.Accel = s.normalizer.Accel(raw)
	}
	s.latest = sample
	return nil
}

func (s *Sensor) pollDMP(ctx context.Context, temperature float64) error {
	for i := 0; i < maxPacketsPerPoll; i++ {
		packet, ok, err := s.dmp.ReadPacket(ctx)
		if err != nil || !ok {
			return err
		}
		for _, event := range packet.Events {
			s.publish(event)
		}

		sample := s.normalizer.Packet(packet, nil, temperature)
		sample.Compass = s.compass
		if !packet.HasGyro() {
			sample.Gyro = s.latest.Gyro
		}
		if !packet.HasAccel() {
			sample.Accel = s.latest.Accel
		}
		if sample.Quaternion == nil {
			sample.Quaternion = s.latest.Quaternion
		} else {
			s.haveQ = true
		}
		s.latest = sample

		if packet.More <= 0 {
			return nil
		}
	}
	return nil
}

func (s *Sensor) publish(event GestureEvent) {
	select {
	case s.events <- event:
	default:
		s.droppedEvents.Inc()
		s.logger.Debugw("dropping gesture event, nobody is reading", "event", event.String())
	}
}

// Events returns tap and orientation events. Events are dropped while the channel is full. The
// channel is closed by Close.
func (s *Sensor) Events() <-chan GestureEvent {
	return s.events
}

// Latest returns the most recent sample.
func (s *Sensor) Latest(ctx context.Context) (ImuSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.err.Get()
}

// AngularVelocity returns the latest gyro reading in degrees per second.
func (s *Sensor) AngularVelocity(ctx context.Context) (r3.Vector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest.Gyro, s.err.Get()
}

// LinearAcceleration returns the latest accelerometer reading in g.
func (s *Sensor) LinearAcceleration(ctx context.Context) (r3.Vector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastError := s.err.Get()
	if lastError != nil {
		return r3.Vector{}, lastError
	}
	return s.latest.Accel, nil
}

// Orientation returns the latest DMP quaternion.
func (s *Sensor) Orientation(ctx context.Context) (quat.Number, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.haveQ || s.latest.Quaternion == nil {
		return quat.Number{}, ErrOrientationUnavailable
	}
	return *s.latest.Quaternion, s.err.Get()
}

// CompassReading returns the latest magnetometer reading in microtesla.
func (s *Sensor) CompassReading(ctx context.Context) (r3.Vector, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.compass == nil {
		return r3.Vector{}, errors.Wrap(ErrSensorDisabled, "no compass reading yet")
	}
	return *s.compass, s.err.Get()
}

// Readings returns the latest sample and stream statistics as a map.
func (s *Sensor) Readings(ctx context.Context) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	readings := make(map[string]interface{})
	readings["angular_velocity"] = s.latest.Gyro
	readings["linear_acceleration"] = s.latest.Accel
	readings["temperature_celsius"] = s.latest.Temperature
	if s.compass != nil {
		readings["compass"] = *s.compass
	}
	if s.latest.Quaternion != nil {
		readings["orientation"] = *s.latest.Quaternion
	}
	stats := s.mpu.Stats()
	readings["fifo_resets"] = stats.FIFOResets.Load()
	readings["fifo_overflows"] = stats.FIFOOverflows.Load()
	readings["corrupt_packets"] = stats.CorruptQuaternions.Load()
	readings["dropped_events"] = s.droppedEvents.Load()

	return readings, s.err.Get()
}

// Driver exposes the register-level driver. The caller must not use it while the sensor runs.
func (s *Sensor) Driver() *Driver {
	return s.mpu
}

// Close stops polling and puts the chip to sleep. Later calls do nothing.
func (s *Sensor) Close(ctx context.Context) error {
	s.workers.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.events)

	var err error
	if s.dmp != nil {
		err = multierr.Append(err, s.mpu.SetDMPState(ctx, false))
	}
	return multierr.Append(err, s.mpu.Close(ctx))
}
