package main

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestReadConfigExpandsEnvironment(t *testing.T) {
	t.Setenv("MPU9150_BUS", "3")
	path := filepath.Join(t.TempDir(), "mpu9150.json")
	err := os.WriteFile(path, []byte(`{"i2c_bus": "${MPU9150_BUS}", "use_alt_i2c_address": true}`), 0o600)
	test.That(t, err, test.ShouldBeNil)

	cfg, err := readConfig(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.I2CBus, test.ShouldEqual, "3")
	test.That(t, cfg.UseAlternateI2CAddress, test.ShouldBeTrue)
}

func TestReadConfigRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mpu9150.json")
	test.That(t, os.WriteFile(path, []byte(`{"i2c_bus": `), 0o600), test.ShouldBeNil)

	_, err := readConfig(path)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "cannot parse")
}
