package mpu9150

import (
	"context"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
)

// CalibrateGyroBias averages samples gyro readings, taken interval apart with the chip held still,
// and returns the bias in Q16 degrees per second as PushGyroBias expects it.
func (mpu *Driver) CalibrateGyroBias(ctx context.Context, samples int, interval time.Duration) ([3]int32, error) {
	if samples <= 0 {
		return [3]int32{}, errors.Errorf("need at least one sample, got %d", samples)
	}
	sensitivity := mpu.state.GyroFSR.Sensitivity()
	if sensitivity == 0 {
		return [3]int32{}, errors.New("gyro range has not been configured")
	}

	axes := [3]stats.Float64Data{}
	for i := 0; i < samples; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return [3]int32{}, ctx.Err()
			case <-mpu.clk.After(interval):
			}
		}
		raw, err := mpu.GyroReg(ctx)
		if err != nil {
			return [3]int32{}, err
		}
		for axis, v := range raw {
			axes[axis] = append(axes[axis], float64(v))
		}
	}

	var bias [3]int32
	for axis, data := range axes {
		mean, err := stats.Mean(data)
		if err != nil {
			return [3]int32{}, err
		}
		q16, err := stats.Round(mean/sensitivity*65536, 0)
		if err != nil {
			return [3]int32{}, err
		}
		bias[axis] = int32(q16)
	}
	mpu.logger.Debugw("gyro bias calibrated", "samples", samples, "bias_q16", bias)
	return bias, nil
}
