package w25q

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/gentam/w25q/bitbang"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"
)

// ftdiMaxTx is the largest MPSSE data transfer [FTDI-AN_108|3.3 MSB First].
const ftdiMaxTx = 65536

// Device is an FT2232H board with the flash on channel A, such as the
// iCEstick or the iCEBreaker, where the flash shares the bus with an FPGA.
type Device struct {
	FTDI  *ftdi.FT232H
	Flash *Flash

	cs    gpio.PinIO // ADBUS4 Chip Select
	reset gpio.PinIO // ADBUS7 Reset
	cdone gpio.PinIO // ADBUS6 Done

	port spi.PortCloser // nil when bit-banged
}

// DeviceConfig selects the FT2232H pins and SPI clock. Zero values select
// the iCEstick wiring at 30MHz over MPSSE.
type DeviceConfig struct {
	Clock physic.Frequency

	// BitBang drives ADBUS0-2 as GPIO instead of using the MPSSE engine.
	BitBang bool

	// Pin names as in FT232H: D0-D7 (ADBUS), C0-C7 (ACBUS). An empty Reset
	// or Done leaves the line unused.
	CS, Reset, Done string
}

func (c DeviceConfig) withDefaults() DeviceConfig {
	if c.Clock == 0 {
		c.Clock = 30 * physic.MegaHertz // [FTDI-AN_135|3.2.1 Divisors]
	}
	if c.CS == "" {
		c.CS = "D4"
	}
	return c
}

var hostInitialized atomic.Bool

// NewDevice finds the FT2232H and connects to the flash on it. Call Open
// before using Flash.
func NewDevice(cfg DeviceConfig, opts ...Option) (*Device, error) {
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("host initialization failed: %w", err)
		}
	}
	cfg = cfg.withDefaults()

	d := &Device{}
	if err := d.findFT2232H(); err != nil {
		return nil, err
	}

	// [Lattice-EB82|Appendix A. Sheet 2 of 5 (USB to SPI/RS232)] / [iCEBreaker]
	// ADBUS0 | iCE_SCK
	// ADBUS1 | iCE_MOSI / FLASH_MOSI
	// ADBUS2 | iCE_MISO / FLASH_MISO
	// ADBUS4 | iCE_SS_B
	// ADBUS6 | iCE_CDONE
	// ADBUS7 | iCE_CRESET / iCE_RESET
	var err error
	if d.cs, err = FTDIPin(d.FTDI, cfg.CS); err != nil {
		return nil, err
	}
	if cfg.Reset != "" {
		if d.reset, err = FTDIPin(d.FTDI, cfg.Reset); err != nil {
			return nil, err
		}
	}
	if cfg.Done != "" {
		if d.cdone, err = FTDIPin(d.FTDI, cfg.Done); err != nil {
			return nil, err
		}
		if err := d.cdone.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("configure %s: %w", d.cdone, err)
		}
	}

	var t Transport
	if cfg.BitBang {
		t, err = bitbang.New(d.FTDI.D0, d.FTDI.D1, d.FTDI.D2, bitbang.WithFrequency(cfg.Clock))
	} else {
		t, err = d.connectSPI(cfg.Clock)
	}
	if err != nil {
		return nil, err
	}

	d.Flash = New(t, d.cs, opts...)
	return d, nil
}

// Open holds the FPGA in reset, so it does not act as a SPI master, wakes
// the flash and runs Begin. The FPGA leaves the flash in deep power-down
// after configuration.
func (d *Device) Open() error {
	if err := d.ResetFPGA(gpio.Low); err != nil {
		return fmt.Errorf("hold FPGA reset: %w", err)
	}
	if err := d.Flash.ReleasePowerDown(); err != nil {
		return fmt.Errorf("flash power up failed: %w", err)
	}
	return d.Flash.Begin()
}

// ResetFPGA asserts (low) or deasserts (high) the FPGA reset line. Holding
// the FPGA in reset keeps it from driving the shared SPI bus.
func (d *Device) ResetFPGA(l gpio.Level) error {
	if d.reset == nil {
		return nil
	}
	return d.reset.Out(l)
}

// FPGADone reports the CDONE line. It is false when no Done pin is
// configured.
func (d *Device) FPGADone() bool {
	return d.cdone != nil && d.cdone.Read() == gpio.High
}

// Close releases the MPSSE SPI port.
func (d *Device) Close() error {
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	return err
}

func (d *Device) findFT2232H() error {
	const (
		vendorID  = 0x0403 // FTDI
		productID = 0x6010 // FT2232H
	)

	info := ftdi.Info{}
	for _, dev := range ftdi.All() {
		dev.Info(&info)
		if info.VenID != vendorID || info.DevID != productID {
			continue
		}
		if ft, ok := dev.(*ftdi.FT232H); ok {
			d.FTDI = ft
			return nil
		}
	}

	return errors.New("FT2232H device not found")
}

func (d *Device) connectSPI(clock physic.Frequency) (*ConnTransport, error) {
	port, err := d.FTDI.SPI()
	if err != nil {
		return nil, fmt.Errorf("failed to get SPI port: %w", err)
	}

	// [FTDI-AN_114|1.2]> FTDI device can only support mode 0 and mode 2 due to the limitation of MPSSE engine
	// [W25Q64FV|6.1.1] mode 0 and mode 3 are supported
	c, err := port.Connect(clock, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, err
	}
	d.port = port
	return &ConnTransport{Conn: c, MaxTx: ftdiMaxTx}, nil
}

// FTDIPin returns the FT232H pin with the given name (D0-D7 or C0-C7,
// case-insensitive).
func FTDIPin(ft *ftdi.FT232H, name string) (gpio.PinIO, error) {
	pins := map[string]gpio.PinIO{
		"D0": ft.D0, "D1": ft.D1, "D2": ft.D2, "D3": ft.D3,
		"D4": ft.D4, "D5": ft.D5, "D6": ft.D6, "D7": ft.D7,
		"C0": ft.C0, "C1": ft.C1, "C2": ft.C2, "C3": ft.C3,
		"C4": ft.C4, "C5": ft.C5, "C6": ft.C6, "C7": ft.C7,
	}
	p, ok := pins[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("unknown FT232H pin %q", name)
	}
	if p == nil {
		return nil, fmt.Errorf("FT232H pin %s not available", name)
	}
	return p, nil
}
