// Package config loads board profiles: which transport reaches the flash,
// at what clock, and on which pins.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/physic"
)

// Transport kinds.
const (
	TransportFTDI        = "ftdi"         // FT2232H MPSSE
	TransportFTDIBitBang = "ftdi-bitbang" // FT2232H ADBUS0-2 as GPIO
	TransportSPIDev      = "spidev"       // host SPI port via spireg
	TransportBitBang     = "bitbang"      // host GPIO via gpioreg
)

// Board describes how the flash is wired.
//
// Example:
//
//	name: rpi
//	transport: spidev
//	port: SPI0.0
//	clock: 10MHz
//	pins:
//	  cs: GPIO8
type Board struct {
	Name      string `yaml:"name"`
	Transport string `yaml:"transport"`
	Clock     string `yaml:"clock"`
	// Mode is the SPI mode for the bitbang transport, 0 or 3.
	Mode int `yaml:"mode"`
	// Port is the spireg port name (spidev only).
	Port string `yaml:"port"`
	Pins Pins   `yaml:"pins"`
}

// Pins are FT232H pin names (D0-D7, C0-C7) for the ftdi transports and
// gpioreg names otherwise.
type Pins struct {
	CS    string `yaml:"cs"`
	SCK   string `yaml:"sck"`
	MOSI  string `yaml:"mosi"`
	MISO  string `yaml:"miso"`
	Reset string `yaml:"reset,omitempty"`
	Done  string `yaml:"done,omitempty"`
}

// Default returns the iCEstick profile: FT2232H channel A over MPSSE at
// 30MHz, with the FPGA reset and done lines on ADBUS7 and ADBUS6.
func Default() Board {
	return Board{
		Name:      "icestick",
		Transport: TransportFTDI,
		Clock:     "30MHz",
		Pins: Pins{
			CS:    "D4",
			SCK:   "D0",
			MOSI:  "D1",
			MISO:  "D2",
			Reset: "D7",
			Done:  "D6",
		},
	}
}

// Parse decodes a profile on top of Default and validates it.
func Parse(data []byte) (Board, error) {
	b := Default()
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Board{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	b.Transport = strings.ToLower(b.Transport)
	if err := b.Validate(); err != nil {
		return Board{}, err
	}
	return b, nil
}

// Load reads a profile from path.
func Load(path string) (Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Board{}, err
	}
	b, err := Parse(data)
	if err != nil {
		return Board{}, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Frequency parses Clock, e.g. "30MHz".
func (b Board) Frequency() (physic.Frequency, error) {
	var f physic.Frequency
	if err := f.Set(b.Clock); err != nil {
		return 0, fmt.Errorf("clock %q: %w", b.Clock, err)
	}
	if f <= 0 {
		return 0, fmt.Errorf("clock %q must be positive", b.Clock)
	}
	return f, nil
}

// Validate checks that the profile names everything its transport needs.
func (b Board) Validate() error {
	if _, err := b.Frequency(); err != nil {
		return err
	}
	if b.Pins.CS == "" {
		return fmt.Errorf("pins.cs is required")
	}
	switch b.Transport {
	case TransportFTDI, TransportFTDIBitBang:
	case TransportSPIDev:
		if b.Port == "" {
			return fmt.Errorf("transport %s requires port", b.Transport)
		}
	case TransportBitBang:
		if b.Pins.SCK == "" || b.Pins.MOSI == "" || b.Pins.MISO == "" {
			return fmt.Errorf("transport %s requires pins.sck, pins.mosi and pins.miso", b.Transport)
		}
	default:
		return fmt.Errorf("unknown transport %q", b.Transport)
	}
	if b.Mode != 0 && b.Mode != 3 {
		return fmt.Errorf("unsupported SPI mode %d", b.Mode)
	}
	return nil
}
