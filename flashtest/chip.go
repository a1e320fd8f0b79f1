// Package flashtest simulates a W25Q64 SPI NOR flash chip at the byte level
// for tests of code built on the w25q driver.
//
// A Chip is both the transport (Transfer) and, through CS, the chip select
// line: driving CS low opens an instruction, driving it high commits it, as
// on the real part. Program and erase take effect at deselect and leave the
// chip busy for BusyPolls status reads.
package flashtest

import (
	"encoding/binary"
	"slices"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

const (
	statusBusy        = 1 << 0
	statusWriteEnable = 1 << 1

	pageSize = 256
)

// Chip is a simulated flash chip. Exported fields may be changed between
// instructions.
type Chip struct {
	Manufacturer byte
	MemoryType   byte
	Capacity     byte
	Device       byte
	UniqueID     uint64
	SFDP         []byte
	Mem          []byte

	// BusyPolls is the number of status register-1 reads that report BUSY
	// after a program or erase.
	BusyPolls int
	// StuckBusy makes BUSY never clear after a program or erase.
	StuckBusy bool
	// WriteProtected keeps the write enable latch from ever setting.
	WriteProtected bool

	// Frames holds the bytes shifted in by the host, one entry per completed
	// select/deselect bracket.
	Frames [][]byte
	// Nested counts selects issued while already selected.
	Nested int
	// Resets counts accepted Enable Reset + Reset sequences.
	Resets int

	sr1, sr2    byte
	busyLeft    int
	stuck       bool
	poweredDown bool
	resetArmed  bool

	selected bool
	cur      []byte
	cs       *Pin
}

// New returns an erased W25Q64FV (EF 40 17, device 16h) of 8MiB.
func New() *Chip {
	c := &Chip{
		Manufacturer: 0xEF,
		MemoryType:   0x40,
		Capacity:     0x17,
		Device:       0x16,
		UniqueID:     0xD26A9C1B2F3E4D5A,
		SFDP:         W25Q64SFDP(),
		Mem:          make([]byte, 8<<20),
	}
	for i := range c.Mem {
		c.Mem[i] = 0xFF
	}
	c.cs = &Pin{Pin: &gpiotest.Pin{N: "CS", L: gpio.High}, chip: c}
	return c
}

// CS returns the chip select line of the chip.
func (c *Chip) CS() *Pin { return c.cs }

// Status returns status register-1 without counting it as a poll.
func (c *Chip) Status() byte {
	if c.busy() {
		return c.sr1 | statusBusy
	}
	return c.sr1
}

func (c *Chip) PoweredDown() bool { return c.poweredDown }

// Opcodes returns the first byte of every recorded frame.
func (c *Chip) Opcodes() []byte {
	ops := make([]byte, 0, len(c.Frames))
	for _, f := range c.Frames {
		if len(f) > 0 {
			ops = append(ops, f[0])
		}
	}
	return ops
}

// ResetLog forgets recorded frames.
func (c *Chip) ResetLog() {
	c.Frames = nil
}

func (c *Chip) busy() bool { return c.stuck || c.busyLeft > 0 }

func (c *Chip) selectChip() {
	if c.selected {
		c.Nested++
	}
	c.selected = true
	c.cur = c.cur[:0]
}

func (c *Chip) deselectChip() {
	if !c.selected {
		return
	}
	c.selected = false
	c.Frames = append(c.Frames, slices.Clone(c.cur))
	c.commit(c.cur)
}

// Transfer implements w25q.Transport. Bytes sent while deselected are lost.
func (c *Chip) Transfer(b byte) (byte, error) {
	if !c.selected {
		return 0xFF, nil
	}
	c.cur = append(c.cur, b)
	return c.respond(len(c.cur) - 1), nil
}

func (c *Chip) addr() uint32 { return c.addrOf(c.cur) }

// respond returns the byte the chip shifts out during byte i of the current
// instruction.
func (c *Chip) respond(i int) byte {
	op := c.cur[0]
	if c.poweredDown && op != 0xAB {
		return 0xFF
	}
	switch op {
	case 0x05:
		if i >= 1 {
			return c.pollStatus()
		}
	case 0x35:
		if i >= 1 {
			return c.sr2
		}
	case 0x03:
		if i >= 4 && !c.busy() {
			return c.Mem[(int(c.addr())+i-4)%len(c.Mem)]
		}
	case 0x90:
		if i >= 4 {
			if i%2 == 0 {
				return c.Manufacturer
			}
			return c.Device
		}
	case 0x9F:
		switch i {
		case 1:
			return c.Manufacturer
		case 2:
			return c.MemoryType
		case 3:
			return c.Capacity
		}
	case 0x4B:
		if i >= 5 && i < 13 {
			var uid [8]byte
			binary.BigEndian.PutUint64(uid[:], c.UniqueID)
			return uid[i-5]
		}
	case 0x5A:
		if i >= 5 {
			a := int(c.addr()) + i - 5
			if a < len(c.SFDP) {
				return c.SFDP[a]
			}
		}
	case 0xAB:
		if i >= 4 {
			return c.Device
		}
	}
	return 0xFF
}

// pollStatus is a status register-1 read as seen by the host. Each read of a
// busy chip counts down the remaining busy time; the write enable latch
// clears together with BUSY.
func (c *Chip) pollStatus() byte {
	if c.stuck {
		return c.sr1 | statusBusy
	}
	if c.busyLeft == 0 {
		return c.sr1
	}
	c.busyLeft--
	sr := c.sr1 | statusBusy
	if c.busyLeft == 0 {
		c.sr1 &^= statusWriteEnable
	}
	return sr
}

// commit applies a completed instruction.
func (c *Chip) commit(f []byte) {
	if len(f) == 0 {
		return
	}
	op := f[0]
	if c.poweredDown {
		if op == 0xAB {
			c.poweredDown = false
		}
		return
	}

	armed := c.resetArmed
	c.resetArmed = false
	switch {
	case op == 0x66:
		c.resetArmed = true
		return
	case op == 0x99 && armed:
		c.sr1 = 0
		c.busyLeft = 0
		c.stuck = false
		c.Resets++
		return
	}

	if c.busy() {
		// Only status reads are accepted while an erase or program runs.
		return
	}

	switch op {
	case 0x06:
		if !c.WriteProtected {
			c.sr1 |= statusWriteEnable
		}
	case 0x04:
		c.sr1 &^= statusWriteEnable
	case 0xB9:
		c.poweredDown = true
	case 0x02:
		if c.writable(f, 4) {
			c.program(f)
			c.startBusy()
		}
	case 0x20, 0x52, 0xD8:
		if c.writable(f, 4) {
			c.eraseUnit(f)
			c.startBusy()
		}
	case 0x60, 0xC7:
		if c.writable(f, 1) {
			for i := range c.Mem {
				c.Mem[i] = 0xFF
			}
			c.startBusy()
		}
	}
}

func (c *Chip) writable(f []byte, minLen int) bool {
	return c.sr1&statusWriteEnable != 0 && len(f) >= minLen
}

func (c *Chip) startBusy() {
	if c.StuckBusy {
		c.stuck = true
		return
	}
	c.busyLeft = c.BusyPolls
	if c.busyLeft == 0 {
		c.sr1 &^= statusWriteEnable
	}
}

// program applies a page program. Data wraps within the page and only the
// last 256 bytes sent take effect.
func (c *Chip) program(f []byte) {
	a := int(c.addrOf(f)) % len(c.Mem)
	base, low := a&^(pageSize-1), a&(pageSize-1)
	data := f[4:]
	if len(data) > pageSize {
		skip := len(data) - pageSize
		low = (low + skip) % pageSize
		data = data[skip:]
	}
	for i, b := range data {
		c.Mem[base+(low+i)%pageSize] &= b
	}
}

func (c *Chip) eraseUnit(f []byte) {
	size := map[byte]int{0x20: 4 << 10, 0x52: 32 << 10, 0xD8: 64 << 10}[f[0]]
	a := int(c.addrOf(f)) % len(c.Mem)
	base := a &^ (size - 1)
	for i := base; i < base+size && i < len(c.Mem); i++ {
		c.Mem[i] = 0xFF
	}
}

func (c *Chip) addrOf(f []byte) uint32 {
	return uint32(f[1])<<16 | uint32(f[2])<<8 | uint32(f[3])
}

// Pin is the chip select line of a Chip. Low selects, high deselects and
// commits the instruction.
type Pin struct {
	*gpiotest.Pin
	chip *Chip
}

func (p *Pin) Out(l gpio.Level) error {
	if err := p.Pin.Out(l); err != nil {
		return err
	}
	if l == gpio.Low {
		p.chip.selectChip()
	} else {
		p.chip.deselectChip()
	}
	return nil
}
