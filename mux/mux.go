// Package mux shares one SPI bus between several logical devices by driving
// GPIO chip-select lines around each transfer.
//
// A Bus serializes access to the underlying handle, so a Bus may be used from
// several goroutines even though a bare spidev.Device may not.
package mux

import (
	"fmt"
	"sync"

	"github.com/stianeikeland/go-rpio/v4"
)

// Pin is one controllable select line. Real lines come from OpenLines; tests
// substitute fakes.
type Pin interface {
	High()
	Low()
}

// Exchanger is the transfer side of a spidev.Device.
type Exchanger interface {
	Exchange(rx, tx []byte) (int, error)
}

// Lines is the pin group for one logical device.
type Lines struct {
	Low  []Pin
	High []Pin
}

// Bus multiplexes one shared SPI handle between named devices.
type Bus struct {
	mu    sync.Mutex
	dev   Exchanger
	lines map[string]Lines
}

func New(dev Exchanger, lines map[string]Lines) *Bus {
	return &Bus{dev: dev, lines: lines}
}

// Exchange selects the named device and runs one full-duplex transfer.
func (b *Bus) Exchange(name string, rx, tx []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	lines, ok := b.lines[name]
	if !ok {
		return 0, fmt.Errorf("mux: unknown device %q", name)
	}
	for _, pin := range lines.Low {
		pin.Low()
	}
	for _, pin := range lines.High {
		pin.High()
	}
	return b.dev.Exchange(rx, tx)
}

// Devices returns the names the Bus can select.
func (b *Bus) Devices() []string {
	names := make([]string, 0, len(b.lines))
	for name := range b.lines {
		names = append(names, name)
	}
	return names
}

type rpioPin struct {
	pin rpio.Pin
}

func (p rpioPin) High() { p.pin.High() }
func (p rpioPin) Low()  { p.pin.Low() }

// PinNumbers is one pin group given as BCM pin numbers.
type PinNumbers struct {
	Low  []int
	High []int
}

// OpenLines maps BCM pin numbers onto memory-mapped GPIO lines, configures
// them as outputs and drives each group to its idle state. Call CloseLines
// when done.
func OpenLines(groups map[string]PinNumbers) (map[string]Lines, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("mux: failed to open gpio: %w", err)
	}

	out := make(map[string]Lines, len(groups))
	for name, group := range groups {
		var lines Lines
		for _, n := range group.Low {
			pin := rpio.Pin(n)
			pin.Output()
			pin.Low()
			lines.Low = append(lines.Low, rpioPin{pin})
		}
		for _, n := range group.High {
			pin := rpio.Pin(n)
			pin.Output()
			pin.High()
			lines.High = append(lines.High, rpioPin{pin})
		}
		out[name] = lines
	}
	return out, nil
}

// CloseLines releases the GPIO mapping.
func CloseLines() error {
	return rpio.Close()
}
