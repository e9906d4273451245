package mpu9150

import (
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Feature is a bitmask of DMP processing features.
type Feature uint16

// DMP features.
const (
	FeatureTap           Feature = 0x001
	FeatureAndroidOrient Feature = 0x002
	FeatureLPQuat        Feature = 0x004
	FeaturePedometer     Feature = 0x008
	Feature6XLPQuat      Feature = 0x010
	FeatureGyroCal       Feature = 0x020
	FeatureSendRawAccel  Feature = 0x040
	FeatureSendRawGyro   Feature = 0x080
	FeatureSendCalGyro   Feature = 0x100
	FeatureSendAnyGyro           = FeatureSendRawGyro | FeatureSendCalGyro
)

var featureNames = map[string]Feature{
	"tap":            FeatureTap,
	"android_orient": FeatureAndroidOrient,
	"lp_quat":        FeatureLPQuat,
	"pedometer":      FeaturePedometer,
	"6x_lp_quat":     Feature6XLPQuat,
	"gyro_cal":       FeatureGyroCal,
	"send_raw_accel": FeatureSendRawAccel,
	"send_raw_gyro":  FeatureSendRawGyro,
	"send_cal_gyro":  FeatureSendCalGyro,
}

// ParseFeatures turns configuration names such as "6x_lp_quat" into a mask.
func ParseFeatures(names []string) (Feature, error) {
	unknown := lo.Reject(names, func(name string, _ int) bool {
		_, ok := featureNames[strings.ToLower(name)]
		return ok
	})
	if len(unknown) > 0 {
		known := lo.Keys(featureNames)
		slices.Sort(known)
		return 0, errors.Wrapf(ErrUnsupported, "DMP features %v (known: %s)", unknown, strings.Join(known, ", "))
	}
	return lo.Reduce(names, func(mask Feature, name string, _ int) Feature {
		return mask | featureNames[strings.ToLower(name)]
	}, Feature(0)), nil
}

// Has reports whether every bit of other is set.
func (f Feature) Has(other Feature) bool {
	return f&other == other
}

// Any reports whether at least one bit of other is set.
func (f Feature) Any(other Feature) bool {
	return f&other != 0
}

func (f Feature) String() string {
	names := lo.Filter(lo.Keys(featureNames), func(name string, _ int) bool {
		return f.Has(featureNames[name])
	})
	if len(names) == 0 {
		return "none"
	}
	slices.SortFunc(names, func(a, b string) int {
		return int(featureNames[a]) - int(featureNames[b])
	})
	return strings.Join(names, "|")
}

// validate rejects combinations the firmware cannot run.
func (f Feature) validate() error {
	if f.Has(FeatureLPQuat | Feature6XLPQuat) {
		return &ConfigurationError{Setting: "DMP features " + f.String(), Err: ErrExclusiveQuaternionModes}
	}
	return nil
}

// packetLength is the FIFO packet size the firmware produces for a feature set.
func (f Feature) packetLength() int {
	length := 0
	if f.Any(FeatureLPQuat | Feature6XLPQuat) {
		length += 16
	}
	if f.Any(FeatureSendRawAccel) {
		length += 6
	}
	if f.Any(FeatureSendAnyGyro) {
		length += 6
	}
	if f.Any(FeatureTap | FeatureAndroidOrient) {
		length += 4
	}
	return length
}
