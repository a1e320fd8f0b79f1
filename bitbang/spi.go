// Package bitbang implements a software SPI master on periph GPIO pins, for
// boards where the flash is not wired to a hardware SPI controller.
//
// Only modes 0 and 3 are supported, the two modes SPI NOR flash accepts
// ([W25Q64FV|6.1.1 Standard SPI Instructions]). Bits are sent MSB first and
// sampled on the rising clock edge.
package bitbang

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// SPI is a bit-banged SPI master. Chip select is not part of it; the flash
// driver owns the /CS line.
type SPI struct {
	sck  gpio.PinOut
	mosi gpio.PinOut
	miso gpio.PinIn

	mode spi.Mode
	// time between clock edges (i.e. half the cycle time)
	half time.Duration
}

// Option specifies a construction option for the SPI.
type Option func(*SPI)

// WithMode selects spi.Mode0 (default) or spi.Mode3.
func WithMode(m spi.Mode) Option {
	return func(s *SPI) {
		s.mode = m
	}
}

// WithFrequency sets the target clock frequency. Without it the pins are
// toggled as fast as the GPIO driver allows.
func WithFrequency(f physic.Frequency) Option {
	return func(s *SPI) {
		if f > 0 {
			s.half = f.Period() / 2
		}
	}
}

// New configures sck and mosi as outputs at their idle level and miso as an
// input.
func New(sck, mosi gpio.PinOut, miso gpio.PinIn, options ...Option) (*SPI, error) {
	s := &SPI{sck: sck, mosi: mosi, miso: miso}
	for _, option := range options {
		option(s)
	}
	if s.mode != spi.Mode0 && s.mode != spi.Mode3 {
		return nil, fmt.Errorf("bitbang: unsupported mode %d", s.mode)
	}
	if err := sck.Out(s.idle()); err != nil {
		return nil, fmt.Errorf("bitbang: sck: %w", err)
	}
	if err := mosi.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("bitbang: mosi: %w", err)
	}
	if err := miso.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("bitbang: miso: %w", err)
	}
	return s, nil
}

func (s *SPI) String() string {
	return fmt.Sprintf("bitbang(%s,%s,%s)", s.sck, s.mosi, s.miso)
}

func (s *SPI) idle() gpio.Level {
	return s.mode == spi.Mode3
}

// Transfer clocks b out on MOSI and returns the byte read on MISO.
func (s *SPI) Transfer(b byte) (byte, error) {
	var in byte
	for i := 7; i >= 0; i-- {
		bit, err := s.clockBit(b&(1<<i) != 0)
		if err != nil {
			return 0, err
		}
		if bit {
			in |= 1 << i
		}
	}
	return in, nil
}

// clockBit runs one clock cycle. It starts and ends with SCK at its idle
// level.
//
//	mode 0: MOSI, wait, SCK rise + sample, wait, SCK fall
//	mode 3: SCK fall, MOSI, wait, SCK rise + sample, wait
func (s *SPI) clockBit(out gpio.Level) (gpio.Level, error) {
	if s.mode == spi.Mode3 {
		if err := s.sck.Out(gpio.Low); err != nil {
			return gpio.Low, err
		}
	}
	if err := s.mosi.Out(out); err != nil {
		return gpio.Low, err
	}
	s.wait()
	if err := s.sck.Out(gpio.High); err != nil {
		return gpio.Low, err
	}
	in := s.miso.Read()
	s.wait()
	if s.mode == spi.Mode0 {
		if err := s.sck.Out(gpio.Low); err != nil {
			return gpio.Low, err
		}
	}
	return in, nil
}

func (s *SPI) wait() {
	if s.half > 0 {
		time.Sleep(s.half)
	}
}
