// Package main is a small command line tool for poking at an MPU-9150 on a Linux I2C bus.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/a8m/envsubst"
	"github.com/benbjohnson/clock"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mattjlewis/diozero-sub004/components/board/genericlinux/buses"
	"github.com/mattjlewis/diozero-sub004/components/movementsensor/mpu9150"
	"github.com/mattjlewis/diozero-sub004/logging"
)

const (
	flagBus      = "bus"
	flagAltAddr  = "alt-address"
	flagConfig   = "config"
	flagInterval = "print-interval"
	flagDebug    = "debug"
	flagLogFile  = "log-file"
)

// Gesture events stand out from the sample lines. Color is dropped when stdout is not a terminal.
var eventColor = color.New(color.FgYellow, color.Bold)

func main() {
	var (
		logger  logging.Logger
		logFile *lumberjack.Logger
	)

	app := &cli.App{
		Name:  "mpu9150",
		Usage: "read an MPU-9150 IMU over I2C",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "write logs to `FILE`, rotated at 10MB, instead of stdout",
			},
		},
		Before: func(c *cli.Context) error {
			level := logging.INFO
			if c.Bool(flagDebug) {
				level = logging.DEBUG
			}
			if path := c.String(flagLogFile); path != "" {
				logFile = &lumberjack.Logger{
					Filename:   path,
					MaxSize:    10,
					MaxBackups: 3,
					Compress:   true,
				}
				logger = logging.NewWriterLogger("mpu9150", level, logFile)
				return nil
			}
			if level == logging.DEBUG {
				logger = logging.NewDebugLogger("mpu9150")
			} else {
				logger = logging.NewLogger("mpu9150")
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if logFile == nil {
				return nil
			}
			return multierr.Combine(logger.Sync(), logFile.Close())
		},
		Commands: []*cli.Command{
			{
				Name:  "info",
				Usage: "identify the chip and print its configuration after bring-up",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagBus,
						Value: "1",
						Usage: "I2C bus name or device path",
					},
					&cli.BoolFlag{
						Name:  flagAltAddr,
						Usage: "use address 0x69 (AD0 high)",
					},
				},
				Action: func(c *cli.Context) error {
					return infoAction(c, logger)
				},
			},
			{
				Name:  "stream",
				Usage: "poll the sensor and print samples and gesture events until interrupted",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagConfig,
						Aliases:  []string{"c"},
						Required: true,
						Usage:    "load sensor attributes from JSON `FILE`",
					},
					&cli.DurationFlag{
						Name:  flagInterval,
						Value: 500 * time.Millisecond,
						Usage: "how often to print the latest sample",
					},
				},
				Action: func(c *cli.Context) error {
					return streamAction(c, logger)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func infoAction(c *cli.Context, logger logging.Logger) (err error) {
	ctx := c.Context
	bus, err := buses.NewI2cBus(c.String(flagBus))
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, bus.Close())
	}()

	address := byte(mpu9150.DefaultAddress)
	if c.Bool(flagAltAddr) {
		address = mpu9150.AlternateAddress
	}
	mpu := mpu9150.NewDriver(bus, address, clock.New(), logger)
	if err := mpu.Init(ctx); err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, mpu.Close(ctx))
	}()

	id, err := mpu.WhoAmI(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "WHO_AM_I 0x%02x, compass found: %t\n", id, mpu.CompassFound())
	fmt.Fprintln(c.App.Writer, mpu.State())
	return nil
}

// readConfig loads sensor attributes from a JSON file. ${VAR} references are expanded from the
// environment first.
func readConfig(path string) (*mpu9150.Config, error) {
	data, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var attributes map[string]interface{}
	if err := json.Unmarshal(data, &attributes); err != nil {
		return nil, errors.Wrapf(err, "cannot parse %s", path)
	}
	return mpu9150.ConfigFromAttributes(attributes)
}

func streamAction(c *cli.Context, logger logging.Logger) (err error) {
	cfg, err := readConfig(c.String(flagConfig))
	if err != nil {
		return err
	}
	if _, err := cfg.Validate(c.String(flagConfig)); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, err := buses.NewI2cBus(cfg.I2CBus)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, bus.Close())
	}()

	sensor, err := mpu9150.NewSensor(ctx, bus, cfg, clock.New(), logger)
	if err != nil {
		return err
	}
	defer func() {
		// ctx is cancelled by now.
		err = multierr.Combine(err, sensor.Close(context.Background()))
	}()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		ticker := time.NewTicker(c.Duration(flagInterval))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
			sample, err := sensor.Latest(ctx)
			if err != nil {
				logger.Warnw("sensor error", "error", err)
				continue
			}
			printSample(c, sample)
		}
	})
	group.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-sensor.Events():
				if !ok {
					return nil
				}
				eventColor.Fprintf(c.App.Writer, "event: %s\n", event)
			}
		}
	})
	return group.Wait()
}

func printSample(c *cli.Context, sample mpu9150.ImuSample) {
	line := fmt.Sprintf("%s gyro=(%.2f %.2f %.2f) accel=(%.3f %.3f %.3f) temp=%.1fC",
		sample.Timestamp.Format(time.StampMilli),
		sample.Gyro.X, sample.Gyro.Y, sample.Gyro.Z,
		sample.Accel.X, sample.Accel.Y, sample.Accel.Z,
		sample.Temperature)
	if sample.Compass != nil {
		line += fmt.Sprintf(" compass=(%.1f %.1f %.1f)", sample.Compass.X, sample.Compass.Y, sample.Compass.Z)
	}
	if q := sample.Quaternion; q != nil {
		line += fmt.Sprintf(" quat=(%.4f %.4f %.4f %.4f)", q.Real, q.Imag, q.Jmag, q.Kmag)
	}
	fmt.Fprintln(c.App.Writer, line)
}
