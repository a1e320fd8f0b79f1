package w25q

import (
	"fmt"
	"time"
)

// Geometry shared by the W25Q family.
const (
	PageSize    = 256
	SectorSize  = 4 << 10  // 4KB
	Block32Size = 32 << 10 // 32KB
	Block64Size = 64 << 10 // 64KB
)

// [W25Q64FV|9.6 AC Electrical Characteristics], maximum values.
const (
	// DefaultReadyTimeout bounds the readiness check that precedes every
	// read, program and erase.
	DefaultReadyTimeout = 100 * time.Millisecond

	// tPP: Page Program Time
	TimeoutPageProgram = 3 * time.Millisecond
	// tSE: Sector Erase Time (4KB)
	TimeoutSectorErase = 400 * time.Millisecond
	// tBE1: Block Erase Time (32KB)
	TimeoutBlockErase32KB = 1600 * time.Millisecond
	// tBE2: Block Erase Time (64KB)
	TimeoutBlockErase64KB = 2000 * time.Millisecond
	// tCE: Chip Erase Time
	TimeoutChipErase = 100 * time.Second

	// tRES1/tRES2: /CS High to Standby Mode
	PowerUpDelay = 3 * time.Microsecond
	// tDP: /CS High to Power-down Mode
	PowerDownDelay = 3 * time.Microsecond
	// tRST: Reset Time
	ResetDelay = 30 * time.Microsecond
)

// Chip describes a flash part by its JEDEC ID.
type Chip struct {
	Name     string
	JEDECID  uint32 // manufacturer<<16 | memory type<<8 | capacity
	Capacity int    // bytes
}

func (c Chip) Manufacturer() byte { return byte(c.JEDECID >> 16) }
func (c Chip) MemoryType() byte   { return byte(c.JEDECID >> 8) }

func (c Chip) String() string {
	name := c.Name
	if name == "" {
		name = "unknown"
	}
	return fmt.Sprintf("%s (%06X, %d KiB)", name, c.JEDECID, c.Capacity>>10)
}

var (
	flashIDWinbondW25Q16   uint32 = 0xEF4015
	flashIDWinbondW25Q32   uint32 = 0xEF4016
	flashIDWinbondW25Q64   uint32 = 0xEF4017
	flashIDWinbondW25Q128  uint32 = 0xEF4018
	flashIDWinbondW25Q128M uint32 = 0xEF7018
	flashIDMicronN25Q32    uint32 = 0x20BA16
)

var knownFlash = map[uint32]Chip{
	flashIDWinbondW25Q16:   {Name: "Winbond W25Q16 16Mb", Capacity: 2 << 20},
	flashIDWinbondW25Q32:   {Name: "Winbond W25Q32 32Mb", Capacity: 4 << 20},
	flashIDWinbondW25Q64:   {Name: "Winbond W25Q64 64Mb", Capacity: 8 << 20},
	flashIDWinbondW25Q128:  {Name: "Winbond W25Q128 128Mb", Capacity: 16 << 20},
	flashIDWinbondW25Q128M: {Name: "Winbond W25Q128JV-M 128Mb", Capacity: 16 << 20},
	flashIDMicronN25Q32:    {Name: "Micron N25Q 32Mb", Capacity: 4 << 20},
}

// LookupChip returns the catalog entry for id. Unknown parts get an empty
// name and the capacity encoded in the JEDEC capacity byte (2^n bytes).
func LookupChip(id uint32) (Chip, bool) {
	if c, ok := knownFlash[id]; ok {
		c.JEDECID = id
		return c, true
	}
	c := Chip{JEDECID: id}
	if n := id & 0xFF; n >= 10 && n < 32 {
		c.Capacity = 1 << n
	}
	return c, false
}
