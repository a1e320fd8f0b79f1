package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gentam/w25q"
	"github.com/gentam/w25q/bitbang"
	"github.com/gentam/w25q/internal/config"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// session is an opened flash and whatever has to be released with it.
type session struct {
	flash *w25q.Flash
	dev   *w25q.Device // ftdi transports only
	log   *slog.Logger

	// sleep puts the flash back in deep power-down on close.
	sleep  bool
	closer func() error
}

func loadBoard() (config.Board, error) {
	b := config.Default()
	if boardFile != "" {
		var err error
		if b, err = config.Load(boardFile); err != nil {
			return b, err
		}
	}
	if transport != "" {
		b.Transport = transport
	}
	if clock != "" {
		b.Clock = clock
	}
	return b, b.Validate()
}

// openSession connects to the flash described by the board profile, wakes
// it and reads its IDs.
func openSession() (*session, error) {
	b, err := loadBoard()
	if err != nil {
		return nil, err
	}
	freq, err := b.Frequency()
	if err != nil {
		return nil, err
	}
	s := &session{log: newLogger(), sleep: true}
	s.log.Debug("opening flash", "board", b.Name, "transport", b.Transport, "clock", freq)

	switch b.Transport {
	case config.TransportFTDI, config.TransportFTDIBitBang:
		d, err := w25q.NewDevice(w25q.DeviceConfig{
			Clock:   freq,
			BitBang: b.Transport == config.TransportFTDIBitBang,
			CS:      b.Pins.CS,
			Reset:   b.Pins.Reset,
			Done:    b.Pins.Done,
		}, w25q.WithLogger(s.log))
		if err != nil {
			return nil, err
		}
		s.dev, s.flash, s.closer = d, d.Flash, d.Close
		if err := d.Open(); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil

	case config.TransportSPIDev:
		if err := hostInit(); err != nil {
			return nil, err
		}
		cs, err := pinByName(b.Pins.CS)
		if err != nil {
			return nil, err
		}
		// The flash driver owns /CS, so the port's own chip select must not
		// be wired to the flash.
		port, err := spireg.Open(b.Port)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", b.Port, err)
		}
		c, err := port.Connect(freq, spi.Mode(b.Mode), 8)
		if err != nil {
			port.Close()
			return nil, err
		}
		s.flash = w25q.New(w25q.NewConnTransport(c), cs, w25q.WithLogger(s.log))
		s.closer = port.Close

	case config.TransportBitBang:
		if err := hostInit(); err != nil {
			return nil, err
		}
		var pins [4]gpio.PinIO
		for i, name := range []string{b.Pins.CS, b.Pins.SCK, b.Pins.MOSI, b.Pins.MISO} {
			if pins[i], err = pinByName(name); err != nil {
				return nil, err
			}
		}
		bb, err := bitbang.New(pins[1], pins[2], pins[3],
			bitbang.WithMode(spi.Mode(b.Mode)), bitbang.WithFrequency(freq))
		if err != nil {
			return nil, err
		}
		s.flash = w25q.New(bb, pins[0], w25q.WithLogger(s.log))
	}

	if err := s.flash.ReleasePowerDown(); err != nil {
		s.Close()
		return nil, fmt.Errorf("flash power up failed: %w", err)
	}
	if err := s.flash.Begin(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close puts the flash to sleep if requested, releases the FPGA reset and
// closes the port.
func (s *session) Close() error {
	var errs []error
	if s.sleep {
		errs = append(errs, s.flash.PowerDown())
	}
	if s.dev != nil {
		errs = append(errs, s.dev.ResetFPGA(gpio.High))
	}
	if s.closer != nil {
		errs = append(errs, s.closer())
	}
	err := errors.Join(errs...)
	if err != nil {
		s.log.Warn("close failed", "err", err)
	}
	return err
}

func hostInit() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("host initialization failed: %w", err)
	}
	return nil
}

func pinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("unknown GPIO pin %q", name)
	}
	return p, nil
}

// withSession opens a session for the duration of fn.
func withSession(fn func(s *session) error) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
