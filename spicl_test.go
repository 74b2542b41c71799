package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwbits/spicl/config"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in   string
		want []byte
	}{
		{"deadbeef", []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{"de:ad:be:ef", []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{"de ad be ef", []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{"00", []byte{0x00}},
	}
	for _, test := range tests {
		got, err := parseHex(test.in)
		require.NoError(t, err, test.in)
		assert.Equal(t, test.want, got, test.in)
	}

	_, err := parseHex("xyz")
	assert.Error(t, err)
	_, err = parseHex("abc") // odd number of digits
	assert.Error(t, err)
	_, err = parseHex("")
	assert.Error(t, err)
}

func TestMergeFlags(t *testing.T) {
	conf := config.Default()
	mergeFlags(conf, &cmdline{device: "/dev/spidev1.0", mode: 3, bits: 16, speed: 2000000})

	assert.Equal(t, "/dev/spidev1.0", conf.Device.Path)
	assert.Equal(t, uint8(3), conf.Device.Mode)
	assert.Equal(t, uint8(16), conf.Device.Bits)
	assert.Equal(t, uint32(2000000), conf.Device.SpeedHz)

	// Zero flags leave the config values alone.
	mergeFlags(conf, &cmdline{})
	assert.Equal(t, "/dev/spidev1.0", conf.Device.Path)
	assert.Equal(t, uint8(3), conf.Device.Mode)
}
