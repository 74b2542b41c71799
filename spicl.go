// spicl is a one-shot SPI transfer tool for Linux spidev device nodes.
//
// It opens the configured device, negotiates the bus parameters, performs a
// single half-duplex read, half-duplex write or full-duplex exchange and
// prints the result as hex.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/hwbits/spicl/config"
	"github.com/hwbits/spicl/logging"
	"github.com/hwbits/spicl/mux"
	"github.com/hwbits/spicl/spidev"
)

type cmdline struct {
	configFile  string
	device      string
	mode        uint
	bits        uint
	speed       uint
	readN       int
	writeHex    string
	exchangeHex string
	selectDev   string
	trace       bool
}

func main() {
	var args cmdline
	flag.StringVar(&args.configFile, "config", "", "YAML config file (optional)")
	flag.StringVar(&args.device, "device", "", "SPI device node, overrides the config")
	flag.UintVar(&args.mode, "mode", 0, "bus mode bits, 0 keeps the hardware default")
	flag.UintVar(&args.bits, "bits", 0, "bits per word, 0 keeps the hardware default")
	flag.UintVar(&args.speed, "speed", 0, "max clock speed in Hz, 0 keeps the hardware default")
	flag.IntVar(&args.readN, "read", 0, "read N bytes half-duplex")
	flag.StringVar(&args.writeHex, "write", "", "write the given hex bytes half-duplex")
	flag.StringVar(&args.exchangeHex, "exchange", "", "exchange the given hex bytes full-duplex")
	flag.StringVar(&args.selectDev, "select", "", "select the named MuxGPIO device before an exchange")
	flag.BoolVar(&args.trace, "trace", false, "dump the transfer trace before exiting")
	flag.Parse()

	if err := run(&args); err != nil {
		slog.Error("spicl failed", "error", err)
		os.Exit(1)
	}
}

func run(args *cmdline) error {
	conf := config.Default()
	if args.configFile != "" {
		var err error
		conf, err = config.Read(args.configFile)
		if err != nil {
			return err
		}
	}
	mergeFlags(conf, args)

	closeLog, err := logging.Init(conf.Logging.Level, conf.Logging.Format, conf.Logging.File)
	if err != nil {
		return fmt.Errorf("can't set up logging: %w", err)
	}
	defer closeLog()

	ring := spidev.NewRing(32)
	opts := []spidev.Option{}
	if args.trace {
		opts = append(opts, spidev.WithTracer(ring))
	}

	dev, err := spidev.Open(conf.Device.Path, conf.Device.Mode, conf.Device.Bits, conf.Device.SpeedHz, opts...)
	if err != nil {
		return err
	}
	defer dev.Close()

	slog.Info("device ready",
		"device", dev.Path(),
		"mode", dev.Mode(),
		"bits", dev.BitsPerWord(),
		"lsb", dev.LSBFirst(),
		"speed_hz", dev.MaxSpeedHz())

	if err := transfer(dev, conf, args); err != nil {
		return err
	}

	if args.trace {
		for _, rec := range ring.Records() {
			slog.Info("transfer", "op", rec.Op, "len", rec.Len, "err", rec.Err)
		}
	}
	return nil
}

// mergeFlags lets non-zero command line values override the config file.
func mergeFlags(conf *config.Config, args *cmdline) {
	if args.device != "" {
		conf.Device.Path = args.device
	}
	if args.mode != 0 {
		conf.Device.Mode = uint8(args.mode)
	}
	if args.bits != 0 {
		conf.Device.Bits = uint8(args.bits)
	}
	if args.speed != 0 {
		conf.Device.SpeedHz = uint32(args.speed)
	}
}

// openMux maps the config's chip-select pin groups onto GPIO lines and wraps
// the device in a shared bus.
func openMux(dev *spidev.Device, conf *config.Config) (*mux.Bus, func(), error) {
	if len(conf.MuxGPIO) == 0 {
		return nil, nil, fmt.Errorf("-select given but no MuxGPIO groups configured")
	}
	groups := make(map[string]mux.PinNumbers, len(conf.MuxGPIO))
	for name, gpio := range conf.MuxGPIO {
		groups[name] = mux.PinNumbers{Low: gpio.Low, High: gpio.High}
	}
	lines, err := mux.OpenLines(groups)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := mux.CloseLines(); err != nil {
			slog.Error("error closing gpio", "error", err)
		}
	}
	return mux.New(dev, lines), cleanup, nil
}

func transfer(dev *spidev.Device, conf *config.Config, args *cmdline) error {
	switch {
	case args.readN > 0:
		buf := make([]byte, args.readN)
		n, err := dev.Read(buf)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", hex.EncodeToString(buf[:n]))

	case args.writeHex != "":
		buf, err := parseHex(args.writeHex)
		if err != nil {
			return err
		}
		n, err := dev.Write(buf)
		if err != nil {
			return err
		}
		slog.Info("wrote", "bytes", n)

	case args.exchangeHex != "":
		tx, err := parseHex(args.exchangeHex)
		if err != nil {
			return err
		}
		rx := make([]byte, len(tx))
		var n int
		if args.selectDev != "" {
			bus, cleanup, err := openMux(dev, conf)
			if err != nil {
				return err
			}
			defer cleanup()
			n, err = bus.Exchange(args.selectDev, rx, tx)
			if err != nil {
				return err
			}
		} else {
			n, err = dev.Exchange(rx, tx)
			if err != nil {
				return err
			}
		}
		fmt.Printf("%s\n", hex.EncodeToString(rx[:n]))

	default:
		return fmt.Errorf("nothing to do: give one of -read, -write or -exchange")
	}
	return nil
}

// parseHex accepts "deadbeef" as well as "de:ad:be:ef" and "de ad be ef".
func parseHex(s string) ([]byte, error) {
	cleaned := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == ':' || s[i] == ' ' {
			continue
		}
		cleaned = append(cleaned, s[i])
	}
	buf, err := hex.DecodeString(string(cleaned))
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload %q: %w", s, err)
	}
	if len(buf) == 0 {
		return nil, fmt.Errorf("empty hex payload")
	}
	return buf, nil
}
