package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

type BasicStruct struct {
	X int
	y string
}

// nextLine splits the next console line into its tab separated parts.
func nextLine(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	line, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	return strings.Split(strings.TrimSuffix(line, "\n"), "\t")
}

func TestConsoleOutputFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("impl", DEBUG, &buf)

	logger.Info("impl Info log")
	parts := nextLine(t, &buf)
	test.That(t, parts, test.ShouldHaveLength, 5)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "impl")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "impl Info log")

	logger.Infof("impl %s log", "infof")
	test.That(t, nextLine(t, &buf)[4], test.ShouldEqual, "impl infof log")

	// Only public fields of structs are serialized.
	logger.Warnw("BasicStruct", "implOneKey", "1val", "BasicStruct", BasicStruct{1, "alice"})
	parts = nextLine(t, &buf)
	test.That(t, parts, test.ShouldHaveLength, 6)
	test.That(t, parts[1], test.ShouldEqual, "WARN")
	test.That(t, parts[5], test.ShouldContainSubstring, "implOneKey")
	test.That(t, parts[5], test.ShouldNotContainSubstring, "alice")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("filter", WARN, &buf)

	logger.Debug("dropped")
	logger.Info("dropped")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Warn("kept")
	test.That(t, buf.String(), test.ShouldContainSubstring, "kept")

	logger.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, ERROR)
	test.That(t, logger.AsZap().Level(), test.ShouldEqual, zapcore.ErrorLevel)
}

func TestCDebugHonoursDebugMode(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("ctx", INFO, &buf)

	logger.CDebugf(context.Background(), "hidden %d", 1)
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	ctx := EnableDebugMode(context.Background(), "")
	test.That(t, IsDebugMode(ctx), test.ShouldBeTrue)
	test.That(t, len(GetName(ctx)), test.ShouldEqual, 6)

	logger.CDebugf(ctx, "shown %d", 2)
	test.That(t, buf.String(), test.ShouldContainSubstring, "shown 2")
}

func TestSublogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("mpu9150", INFO, &buf)
	sub := logger.Sublogger("dmp")
	sub.Info("hello")

	test.That(t, buf.String(), test.ShouldContainSubstring, "\tmpu9150.dmp\t")

	// Changing the sublogger level does not affect the parent.
	sub.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, INFO)
}

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Warnw("verify mismatch", "offset", 32)

	test.That(t, logs.FilterMessage("verify mismatch").Len(), test.ShouldEqual, 1)
	entry := logs.All()[0]
	test.That(t, entry.Level, test.ShouldEqual, zapcore.WarnLevel)
	test.That(t, entry.ContextMap()["offset"], test.ShouldEqual, int64(32))
}

func TestLevelFromString(t *testing.T) {
	for input, expected := range map[string]Level{
		"debug":   DEBUG,
		"INFO":    INFO,
		"Warning": WARN,
		"error":   ERROR,
	} {
		level, err := LevelFromString(input)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, expected)
		test.That(t, levelFromZap(level.AsZap()), test.ShouldEqual, level)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}
