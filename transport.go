package w25q

import (
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/spi"
)

// Transport moves one byte out to the chip and returns the byte shifted in
// during the same eight clocks.
type Transport interface {
	Transfer(b byte) (byte, error)
}

// Transactor is implemented by transports that need bus framing around every
// instruction, e.g. when the bus is shared with other devices. Flash calls
// BeginTransaction before asserting chip select and EndTransaction after
// releasing it.
type Transactor interface {
	BeginTransaction() error
	EndTransaction() error
}

// txer is the bulk shape of conn.Conn. Transports implementing it receive a
// whole instruction frame per call; the bytes on the wire are the same as
// with Transfer.
type txer interface {
	Tx(w, r []byte) error
}

// limiter reports the largest frame the transport can move in one Tx.
type limiter interface {
	MaxTxSize() int
}

// ConnTransport is the hardware-backed transport on top of a periph SPI
// connection (FTDI MPSSE, Linux spidev, ...).
type ConnTransport struct {
	Conn spi.Conn

	// MaxTx caps the size of a single Tx. Zero uses the connection's own
	// limit if it reports one.
	MaxTx int
}

func NewConnTransport(c spi.Conn) *ConnTransport {
	return &ConnTransport{Conn: c}
}

func (t *ConnTransport) Transfer(b byte) (byte, error) {
	buf := []byte{b}
	if err := t.Conn.Tx(buf, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (t *ConnTransport) Tx(w, r []byte) error {
	return t.Conn.Tx(w, r)
}

func (t *ConnTransport) MaxTxSize() int {
	if t.MaxTx > 0 {
		return t.MaxTx
	}
	if l, ok := t.Conn.(conn.Limits); ok {
		return l.MaxTxSize()
	}
	return 0
}

// Bus shares one SPI connection between several Flash handles, each with its
// own chip select pin. Every instruction holds the bus lock from select to
// deselect.
type Bus struct {
	ConnTransport
	mu sync.Mutex
}

func NewBus(c spi.Conn) *Bus {
	return &Bus{ConnTransport: ConnTransport{Conn: c}}
}

func (b *Bus) BeginTransaction() error {
	b.mu.Lock()
	return nil
}

func (b *Bus) EndTransaction() error {
	b.mu.Unlock()
	return nil
}
