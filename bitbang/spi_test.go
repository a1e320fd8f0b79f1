package bitbang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi"
)

// clockPin reports SCK edges to a simulated peripheral.
type clockPin struct {
	*gpiotest.Pin
	rise, fall func()
}

func (p *clockPin) Out(l gpio.Level) error {
	prev := p.Pin.Read()
	if err := p.Pin.Out(l); err != nil {
		return err
	}
	switch {
	case !bool(prev) && bool(l) && p.rise != nil:
		p.rise()
	case bool(prev) && !bool(l) && p.fall != nil:
		p.fall()
	}
	return nil
}

// shifter is a mode 0 peripheral: it samples MOSI on the rising edge and
// presents its next bit on MISO after the falling edge.
type shifter struct {
	mosi, miso *gpiotest.Pin
	out        byte
	got        byte
	bit        int
}

func (s *shifter) present() {
	s.miso.Out(s.out&(1<<(7-s.bit)) != 0)
}

func (s *shifter) rise() {
	s.got <<= 1
	if s.mosi.Read() {
		s.got |= 1
	}
}

func (s *shifter) fall() {
	s.bit = (s.bit + 1) % 8
	s.present()
}

func TestTransferShiftsBothWays(t *testing.T) {
	mosi := &gpiotest.Pin{N: "MOSI"}
	miso := &gpiotest.Pin{N: "MISO"}
	dev := &shifter{mosi: mosi, miso: miso, out: 0xA5}
	sck := &clockPin{Pin: &gpiotest.Pin{N: "SCK"}, rise: dev.rise, fall: dev.fall}

	s, err := New(sck, mosi, miso)
	require.NoError(t, err)
	dev.present()

	in, err := s.Transfer(0x3C)
	require.NoError(t, err)
	assert.Equal(t, byte(0xA5), in)
	assert.Equal(t, byte(0x3C), dev.got)
	assert.Equal(t, gpio.Low, sck.Read(), "mode 0 idles low")
}

func TestTransferLoopback(t *testing.T) {
	for _, mode := range []spi.Mode{spi.Mode0, spi.Mode3} {
		wire := &gpiotest.Pin{N: "MOSI/MISO"}
		sck := &gpiotest.Pin{N: "SCK"}
		s, err := New(sck, wire, wire, WithMode(mode))
		require.NoError(t, err)

		for _, b := range []byte{0x00, 0xFF, 0x9F, 0x01, 0x80} {
			in, err := s.Transfer(b)
			require.NoError(t, err)
			assert.Equal(t, b, in, "mode %d", mode)
		}
		assert.Equal(t, gpio.Level(mode == spi.Mode3), sck.Read())
	}
}

func TestRisingEdgesPerByte(t *testing.T) {
	rises := 0
	sck := &clockPin{Pin: &gpiotest.Pin{N: "SCK"}, rise: func() { rises++ }}
	wire := &gpiotest.Pin{N: "MOSI/MISO"}
	s, err := New(sck, wire, wire, WithMode(spi.Mode3))
	require.NoError(t, err)
	rises = 0 // idle level setup

	_, err = s.Transfer(0x42)
	require.NoError(t, err)
	assert.Equal(t, 8, rises)
}

func TestUnsupportedMode(t *testing.T) {
	wire := &gpiotest.Pin{N: "MOSI/MISO"}
	_, err := New(&gpiotest.Pin{N: "SCK"}, wire, wire, WithMode(spi.Mode1))
	assert.Error(t, err)
}
