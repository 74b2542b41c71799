// Package spidev wraps the Linux SPI userspace interface (/dev/spidevB.D):
// opening a device node, negotiating mode, bits-per-word and clock speed, and
// running half-duplex and full-duplex transfers.
//
// A Device is a single-owner resource. Every transfer rewrites the handle's
// reusable kernel transfer descriptor, so one handle must only be driven by
// one goroutine at a time (or be protected by a mutex, see package mux).
// Independent handles share no state and may be used concurrently.
package spidev

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"unsafe"
)

// Bus mode bits from linux/spi/spidev.h. They pass through to the driver
// uninterpreted; combine them as the wiring requires.
const (
	CPHA      uint8 = 1 << iota // clock phase
	CPOL                        // clock polarity
	CSHigh                      // chip select active high
	LSBFirst                    // per-word bit order
	ThreeWire                   // SI/SO signals shared
	Loop                        // loopback
	NoCS                        // no chip select
	Ready                       // slave pulls low to pause
)

// The four common polarity/phase combinations.
const (
	Mode0 uint8 = 0
	Mode1       = CPHA
	Mode2       = CPOL
	Mode3       = CPOL | CPHA
)

// Each error identifies the kernel call that failed; the underlying errno is
// wrapped and reachable through errors.Is/As. A failed speed read-back gets
// its own kind (ErrGetSpeed) rather than reusing ErrSetSpeed.
var (
	ErrOpen     = errors.New("spidev: open device")
	ErrSetMode  = errors.New("spidev: set bus mode")
	ErrGetMode  = errors.New("spidev: get bus mode")
	ErrGetLSB   = errors.New("spidev: get lsb-first flag")
	ErrSetBits  = errors.New("spidev: set bits per word")
	ErrGetBits  = errors.New("spidev: get bits per word")
	ErrSetSpeed = errors.New("spidev: set max speed")
	ErrGetSpeed = errors.New("spidev: get max speed")
	ErrRead     = errors.New("spidev: read transfer")
	ErrWrite    = errors.New("spidev: write transfer")
	ErrExchange = errors.New("spidev: exchange transfer")
)

// xfer mirrors struct spi_ioc_transfer. The per-transfer speed/bits/delay
// overrides stay zero: all transfers run with the settings negotiated at Open.
type xfer struct {
	txBuf       uint64
	rxBuf       uint64
	length      uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNbits     uint8
	rxNbits     uint8
	wordDelay   uint8
	pad         uint8
}

// Device is an open SPI device node. The recorded mode/bits/lsb/speed are the
// values the driver reported back after negotiation, not the requested ones.
type Device struct {
	fd    int
	path  string
	mode  uint8
	bits  uint8
	lsb   bool
	speed uint32
	xfer  xfer

	sys    syscalls
	log    *slog.Logger
	tracer Tracer
}

// Option configures a Device before it is opened.
type Option func(*Device)

// WithLogger routes the device's diagnostics to l instead of slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) { d.log = l }
}

// WithTracer attaches a Tracer that receives a Record after every transfer
// submission.
func WithTracer(t Tracer) Option {
	return func(d *Device) { d.tracer = t }
}

// withSyscalls swaps the kernel out from under the device. Test hook.
func withSyscalls(s syscalls) Option {
	return func(d *Device) { d.sys = s }
}

// Open opens the device node read-write and negotiates the bus parameters.
// A zero mode, bits or speed means "leave the hardware default untouched":
// the corresponding set call is skipped and only the read-back happens. The
// actual values the driver reports become the handle's recorded configuration.
//
// Open never leaks: if any negotiation step fails after the node was opened,
// the descriptor is closed before the error is returned.
func Open(path string, mode uint8, bits uint8, speed uint32, opts ...Option) (*Device, error) {
	d := &Device{
		path: path,
		sys:  defaultSyscalls,
		log:  slog.Default(),
	}
	for _, o := range opts {
		o(d)
	}

	fd, err := d.sys.open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrOpen, path, err)
	}
	d.fd = fd

	if err := d.negotiate(mode, bits, speed); err != nil {
		d.sys.close(fd)
		return nil, err
	}

	d.log.Debug("spidev opened",
		"device", d.path,
		"mode", d.mode,
		"bits", d.bits,
		"lsb", d.lsb,
		"speed_hz", d.speed)
	return d, nil
}

func (d *Device) negotiate(mode, bits uint8, speed uint32) error {
	if mode != 0 {
		m := mode
		if _, err := d.sys.ioctl(d.fd, spiIocWrMode, unsafe.Pointer(&m)); err != nil {
			return fmt.Errorf("%w: %w", ErrSetMode, err)
		}
	}
	if _, err := d.sys.ioctl(d.fd, spiIocRdMode, unsafe.Pointer(&d.mode)); err != nil {
		return fmt.Errorf("%w: %w", ErrGetMode, err)
	}

	var lsb uint8
	if _, err := d.sys.ioctl(d.fd, spiIocRdLsbFirst, unsafe.Pointer(&lsb)); err != nil {
		return fmt.Errorf("%w: %w", ErrGetLSB, err)
	}
	d.lsb = lsb != 0

	if bits != 0 {
		b := bits
		if _, err := d.sys.ioctl(d.fd, spiIocWrBitsPerWord, unsafe.Pointer(&b)); err != nil {
			return fmt.Errorf("%w: %w", ErrSetBits, err)
		}
	}
	if _, err := d.sys.ioctl(d.fd, spiIocRdBitsPerWord, unsafe.Pointer(&d.bits)); err != nil {
		return fmt.Errorf("%w: %w", ErrGetBits, err)
	}

	if speed != 0 {
		s := speed
		if _, err := d.sys.ioctl(d.fd, spiIocWrMaxSpeedHz, unsafe.Pointer(&s)); err != nil {
			return fmt.Errorf("%w: %w", ErrSetSpeed, err)
		}
	}
	if _, err := d.sys.ioctl(d.fd, spiIocRdMaxSpeedHz, unsafe.Pointer(&d.speed)); err != nil {
		return fmt.Errorf("%w: %w", ErrGetSpeed, err)
	}

	return nil
}

// Close releases the device node. The handle must not be used afterwards;
// Close is not idempotent and a second call operates on a stale descriptor.
func (d *Device) Close() error {
	return d.sys.close(d.fd)
}

// Mode returns the bus mode the driver reported at Open.
func (d *Device) Mode() uint8 { return d.mode }

// BitsPerWord returns the word size the driver reported at Open.
func (d *Device) BitsPerWord() uint8 { return d.bits }

// LSBFirst reports whether the device transfers words least significant bit
// first. Queried at Open, never set by this package.
func (d *Device) LSBFirst() bool { return d.lsb }

// MaxSpeedHz returns the max clock speed the driver reported at Open.
func (d *Device) MaxSpeedHz() uint32 { return d.speed }

// Path returns the device node this handle was opened on.
func (d *Device) Path() string { return d.path }

// Read runs one half-duplex transfer filling buf from the bus. It returns the
// byte count the driver reported, which is authoritative.
func (d *Device) Read(buf []byte) (int, error) {
	n, err := d.message("read", buf, nil, len(buf))
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return n, nil
}

// Write runs one half-duplex transfer pushing buf onto the bus.
func (d *Device) Write(buf []byte) (int, error) {
	n, err := d.message("write", nil, buf, len(buf))
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return n, nil
}

// Exchange runs one full-duplex transfer: tx is shifted out while rx is
// filled, both in the same segment. The buffers must have equal length.
func (d *Device) Exchange(rx, tx []byte) (int, error) {
	if len(rx) != len(tx) {
		return 0, fmt.Errorf("%w: rx/tx length mismatch (%d != %d)", ErrExchange, len(rx), len(tx))
	}
	n, err := d.message("exchange", rx, tx, len(tx))
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrExchange, err)
	}
	return n, nil
}

// message submits a single transfer segment. rx and tx may each be nil or
// empty for the half-duplex shapes; an empty side leaves the corresponding
// buffer address zero in the descriptor, so a zero-length transfer submits
// two null pointers with length 0. Raw addresses exist only here, at the
// call site.
func (d *Device) message(op string, rx, tx []byte, n int) (int, error) {
	d.xfer = xfer{length: uint32(n)}
	if len(tx) > 0 {
		d.xfer.txBuf = uint64(uintptr(unsafe.Pointer(&tx[0])))
	}
	if len(rx) > 0 {
		d.xfer.rxBuf = uint64(uintptr(unsafe.Pointer(&rx[0])))
	}

	ret, err := d.sys.ioctl(d.fd, iocMessage(1), unsafe.Pointer(&d.xfer))
	runtime.KeepAlive(tx)
	runtime.KeepAlive(rx)

	if d.tracer != nil {
		d.tracer.Trace(Record{Op: op, Device: d.path, Len: n, Err: err})
	}
	return ret, err
}
