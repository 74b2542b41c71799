package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseConfig = `
Device:
  Path: /dev/spidev0.1
  Mode: 3
  Bits: 8
  SpeedHz: 500000
Logging:
  Level: "DEBUG"
  Format: "json"
  File: "/tmp/spicl.log"
MuxGPIO:
  adc:
    Low: [17]
    High: [22, 23]
`

func createConfigFile(t *testing.T, configData string) string {
	tempDir, err := os.MkdirTemp("", "spicl-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	configFile := filepath.Join(tempDir, "config.yml")
	err = os.WriteFile(configFile, []byte(configData), 0o644)
	if err != nil {
		t.Fatalf("Failed to write dummy config file: %v", err)
	}
	return configFile
}

func TestReadConfig(t *testing.T) {
	conf, err := Read(createConfigFile(t, baseConfig))
	require.NoError(t, err)

	assert.Equal(t, "/dev/spidev0.1", conf.Device.Path)
	assert.Equal(t, uint8(3), conf.Device.Mode)
	assert.Equal(t, uint8(8), conf.Device.Bits)
	assert.Equal(t, uint32(500000), conf.Device.SpeedHz)
	assert.Equal(t, "DEBUG", conf.Logging.Level)
	assert.Equal(t, "json", conf.Logging.Format)
	require.Contains(t, conf.MuxGPIO, "adc")
	assert.Equal(t, []int{17}, conf.MuxGPIO["adc"].Low)
	assert.Equal(t, []int{22, 23}, conf.MuxGPIO["adc"].High)
}

func TestReadConfigDefaults(t *testing.T) {
	conf, err := Read(createConfigFile(t, "Device: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, "/dev/spidev0.0", conf.Device.Path)
	assert.Zero(t, conf.Device.Mode, "zero mode means hardware default")
	assert.Zero(t, conf.Device.Bits)
	assert.Zero(t, conf.Device.SpeedHz)
	assert.Equal(t, "INFO", conf.Logging.Level)
	assert.Equal(t, "text", conf.Logging.Format)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := Read("/nonexistent/config.yml")
	assert.Error(t, err)
}

func TestReadConfigUnknownField(t *testing.T) {
	_, err := Read(createConfigFile(t, "Device:\n  Pathh: /dev/spidev0.0\n"))
	assert.Error(t, err)
}

func TestReadConfigBadLevel(t *testing.T) {
	_, err := Read(createConfigFile(t, "Logging:\n  Level: LOUD\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log level")
}

func TestReadConfigBadFormat(t *testing.T) {
	_, err := Read(createConfigFile(t, "Logging:\n  Format: xml\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log format")
}

func TestReadConfigBadMuxPin(t *testing.T) {
	_, err := Read(createConfigFile(t, "MuxGPIO:\n  adc:\n    Low: [99]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestDefault(t *testing.T) {
	conf := Default()
	assert.Equal(t, "/dev/spidev0.0", conf.Device.Path)
	assert.Equal(t, "INFO", conf.Logging.Level)
	assert.NoError(t, conf.validate())
}
