package w25q

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// Flash drives one SPI NOR flash chip. It is not safe for concurrent use; to
// share a bus between several chips give each Flash its own chip select and
// a common Bus transport.
type Flash struct {
	t     Transport
	cs    gpio.PinOut
	clock Clock
	log   *slog.Logger

	manufacturerID byte
	deviceID       byte
	code           ErrorCode
}

// Option configures a Flash.
type Option func(*Flash)

// WithClock replaces the wall clock used for readiness timeouts and settle
// delays.
func WithClock(c Clock) Option {
	return func(f *Flash) {
		f.clock = c
	}
}

// WithLogger sets the logger for handshake and timeout diagnostics, which
// are logged at debug level. The default discards them.
func WithLogger(l *slog.Logger) Option {
	return func(f *Flash) {
		f.log = l
	}
}

// New returns a Flash talking through t with cs as the /CS line. Call Begin
// before use.
func New(t Transport, cs gpio.PinOut, opts ...Option) *Flash {
	f := &Flash{
		t:     t,
		cs:    cs,
		clock: systemClock{},
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Flash commands:
//   - [W25Q64FV|6.2.2 Instruction Set Table 1]
const (
	flashCmdWriteEnable          = 0x06
	flashCmdWriteDisable         = 0x04
	flashCmdReadStatusRegister1  = 0x05
	flashCmdReadStatusRegister2  = 0x35
	flashCmdPageProgram          = 0x02
	flashCmdErase4KB             = 0x20 // Sector Erase (4KB)
	flashCmdErase32KB            = 0x52 // Block Erase (32KB)
	flashCmdErase64KB            = 0xD8 // Block Erase (64KB)
	flashCmdEraseChip            = 0x60 // Chip Erase (alias 0xC7)
	flashCmdPowerDown            = 0xB9
	flashCmdRead                 = 0x03
	flashCmdReleasePowerDown     = 0xAB // Release Power Down / Device ID
	flashCmdManufacturerDeviceID = 0x90
	flashCmdReadJEDECID          = 0x9F
	flashCmdReadUniqueID         = 0x4B
	flashCmdReadSFDP             = 0x5A
	flashCmdEnableReset          = 0x66
	flashCmdReset                = 0x99
)

// Begin drives /CS to its idle (high) level and reads the manufacturer and
// device ID into the handle.
func (f *Flash) Begin() error {
	if f.cs == nil {
		return ErrNoChipSelect
	}
	if err := f.cs.Out(gpio.High); err != nil {
		return fmt.Errorf("configure %s: %w", f.cs, err)
	}

	// opcode, 3 dummy bytes, MF7-MF0, ID7-ID0
	buf := make([]byte, 6)
	buf[0] = flashCmdManufacturerDeviceID
	if err := f.exchange(buf); err != nil {
		return err
	}
	f.manufacturerID = buf[4]
	f.deviceID = buf[5]
	f.log.Debug("flash identified", "cs", f.cs.String(),
		"manufacturer", fmt.Sprintf("%02X", f.manufacturerID),
		"device", fmt.Sprintf("%02X", f.deviceID))
	return nil
}

// Bind rebinds the chip select line and runs Begin.
func (f *Flash) Bind(cs gpio.PinOut) error {
	f.cs = cs
	return f.Begin()
}

// ManufacturerID returns the manufacturer ID read by the last Begin.
func (f *Flash) ManufacturerID() byte { return f.manufacturerID }

// DeviceID returns the device ID read by the last Begin.
func (f *Flash) DeviceID() byte { return f.deviceID }

// ErrorCode returns the sticky error code.
func (f *Flash) ErrorCode() ErrorCode { return f.code }

// ClearError resets the sticky error code to CodeNone.
func (f *Flash) ClearError() { f.code = CodeNone }

// addrFrame returns an instruction frame of opcode, the 24-bit address MSB
// first and n trailing bytes.
func addrFrame(op byte, addr uint32, n int) []byte {
	buf := make([]byte, 4+n)
	buf[0] = op
	buf[1] = byte(addr >> 16)
	buf[2] = byte(addr >> 8)
	buf[3] = byte(addr)
	return buf
}

// Read fills p from addr onwards. On success the sticky error code is
// cleared. Reads larger than the transport's transaction limit are split.
func (f *Flash) Read(addr uint32, p []byte) error {
	const cmdBytes = 4 // opRead + 24-bit address

	if err := checkAddr(addr); err != nil {
		return err
	}
	maxData, err := f.maxData(cmdBytes, len(p))
	if err != nil {
		return err
	}
	if err := f.ReadyWait(DefaultReadyTimeout); err != nil {
		return err
	}
	// buf[4:] dummy bytes
	if err := f.readChunked(flashCmdRead, cmdBytes, addr, p, maxData); err != nil {
		return err
	}
	f.code = CodeNone
	return nil
}

// maxData returns how many data bytes fit in one transaction after cmdBytes
// of opcode, address and dummy bytes. Without a transport limit it is n.
func (f *Flash) maxData(cmdBytes, n int) (int, error) {
	l, ok := f.t.(limiter)
	if !ok || l.MaxTxSize() <= 0 {
		return n, nil
	}
	if l.MaxTxSize() <= cmdBytes {
		return 0, fmt.Errorf("%d byte transactions: %w", l.MaxTxSize(), ErrTxLimit)
	}
	return l.MaxTxSize() - cmdBytes, nil
}

// readChunked reads p with one instruction of op per maxData bytes. Each
// frame is opcode, 24-bit address, padding up to cmdBytes, then data.
func (f *Flash) readChunked(op byte, cmdBytes int, addr uint32, p []byte, maxData int) error {
	off := 0
	for {
		chunk := min(len(p)-off, maxData)
		buf := addrFrame(op, addr, cmdBytes-4+chunk)
		if err := f.exchange(buf); err != nil {
			return err
		}
		copy(p[off:], buf[cmdBytes:])

		addr += uint32(chunk)
		off += chunk
		if off >= len(p) {
			return nil
		}
	}
}

// ReadByteAt reads the single byte at addr.
func (f *Flash) ReadByteAt(addr uint32) (byte, error) {
	var b [1]byte
	if err := f.Read(addr, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadAt implements io.ReaderAt over the 24-bit address space. A read
// running past the end of the address space is cut short with io.EOF.
func (f *Flash) ReadAt(p []byte, off int64) (int, error) {
	const end = 1 << 24
	if off < 0 {
		return 0, fmt.Errorf("offset %d: %w", off, ErrAddressRange)
	}
	if off >= end {
		return 0, io.EOF
	}
	var eof error
	if off+int64(len(p)) > end {
		p = p[:end-off]
		eof = io.EOF
	}
	if err := f.Read(uint32(off), p); err != nil {
		return 0, err
	}
	return len(p), eof
}

// prepareWrite gates every program and erase: the chip must be ready and the
// write enable latch verified set.
func (f *Flash) prepareWrite() error {
	if err := f.ReadyWait(DefaultReadyTimeout); err != nil {
		return err
	}
	return f.EnableWrite()
}

// settle waits for a program or erase to finish. On timeout the write
// enable latch is cleared so a late-finishing chip is not left writable.
func (f *Flash) settle(timeout time.Duration) error {
	err := f.ReadyWait(timeout)
	if err == nil || !errors.Is(err, ErrTimeout) {
		return err
	}
	if dErr := f.DisableWrite(); dErr != nil {
		f.log.Debug("write disable after timeout failed", "err", dErr)
	}
	return err
}

// WritePage programs up to 256 bytes at addr. The chip wraps the address
// within the 256-byte page: byte i lands at page base + (addr&0xFF+i)%256.
// The target must have been erased; programming only clears bits.
func (f *Flash) WritePage(addr uint32, data []byte) error {
	if len(data) > PageSize {
		return ErrPageSize
	}
	if err := checkAddr(addr); err != nil {
		return err
	}
	if err := f.prepareWrite(); err != nil {
		return fmt.Errorf("page program 0x%06X: %w", addr, err)
	}

	buf := addrFrame(flashCmdPageProgram, addr, len(data))
	copy(buf[4:], data)
	if err := f.exchange(buf); err != nil {
		return err
	}
	if err := f.settle(TimeoutPageProgram); err != nil {
		return fmt.Errorf("page program 0x%06X: %w", addr, err)
	}
	return nil
}

// Program streams r into flash from addr, splitting on page boundaries so
// that no page program wraps. It returns the number of bytes programmed.
func (f *Flash) Program(addr uint32, r io.Reader) (int, error) {
	buf := make([]byte, PageSize)
	n := 0
	for {
		chunk := PageSize - int(addr%PageSize)
		m, err := io.ReadFull(r, buf[:chunk])
		if m > 0 {
			if werr := f.WritePage(addr, buf[:m]); werr != nil {
				return n, werr
			}
			addr += uint32(m)
			n += m
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
	}
}

// EraseChip sets every bit of the chip to 1.
func (f *Flash) EraseChip() error {
	if err := f.prepareWrite(); err != nil {
		return fmt.Errorf("chip erase: %w", err)
	}
	if err := f.exchange([]byte{flashCmdEraseChip}); err != nil {
		return err
	}
	if err := f.settle(TimeoutChipErase); err != nil {
		return fmt.Errorf("chip erase: %w", err)
	}
	return nil
}

// EraseSector4KB erases the 4KB sector containing addr.
func (f *Flash) EraseSector4KB(addr uint32) error {
	return f.erase(flashCmdErase4KB, addr, TimeoutSectorErase)
}

// EraseBlock32KB erases the 32KB block containing addr.
func (f *Flash) EraseBlock32KB(addr uint32) error {
	return f.erase(flashCmdErase32KB, addr, TimeoutBlockErase32KB)
}

// EraseBlock64KB erases the 64KB block containing addr.
func (f *Flash) EraseBlock64KB(addr uint32) error {
	return f.erase(flashCmdErase64KB, addr, TimeoutBlockErase64KB)
}

// erase is shared by the sized erase instructions. The address is sent as
// given; the chip ignores the low bits below the erase granularity.
func (f *Flash) erase(op byte, addr uint32, settle time.Duration) error {
	if err := checkAddr(addr); err != nil {
		return err
	}
	if err := f.prepareWrite(); err != nil {
		return fmt.Errorf("erase 0x%02X at 0x%06X: %w", op, addr, err)
	}
	if err := f.exchange(addrFrame(op, addr, 0)); err != nil {
		return err
	}
	if err := f.settle(settle); err != nil {
		return fmt.Errorf("erase 0x%02X at 0x%06X: %w", op, addr, err)
	}
	return nil
}

// Erase erases size bytes starting from addr with the largest erase units
// that fit: 64KB blocks, then 32KB blocks, then 4KB sectors. Both addr and
// size must be 4KB aligned.
func (f *Flash) Erase(addr, size uint32) error {
	if addr%SectorSize != 0 || size%SectorSize != 0 {
		return ErrAlignment
	}
	for remaining := size; remaining > 0; {
		n, erase := uint32(SectorSize), f.EraseSector4KB
		switch {
		case addr%Block64Size == 0 && remaining >= Block64Size:
			n, erase = Block64Size, f.EraseBlock64KB
		case addr%Block32Size == 0 && remaining >= Block32Size:
			n, erase = Block32Size, f.EraseBlock32KB
		}
		if err := erase(addr); err != nil {
			return err
		}
		addr += n
		remaining -= n
	}
	return nil
}

// JEDECID returns manufacturer<<16 | memory type<<8 | capacity.
func (f *Flash) JEDECID() (uint32, error) {
	buf := make([]byte, 4)
	buf[0] = flashCmdReadJEDECID
	if err := f.exchange(buf); err != nil {
		return 0, err
	}
	return uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3]), nil
}

// Identify reads the JEDEC ID and looks it up in the catalog of known parts.
// An unknown part is not an error; its Chip has an empty Name.
func (f *Flash) Identify() (Chip, error) {
	id, err := f.JEDECID()
	if err != nil {
		return Chip{}, err
	}
	c, _ := LookupChip(id)
	return c, nil
}

// ReadUniqueID returns the factory-programmed 64-bit unique ID.
func (f *Flash) ReadUniqueID() (uint64, error) {
	// opcode, 4 dummy bytes, UID63-UID0
	buf := make([]byte, 1+4+8)
	buf[0] = flashCmdReadUniqueID
	if err := f.exchange(buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[5:]), nil
}

// ReadSFDPRegister reads one byte of the SFDP table at addr.
func (f *Flash) ReadSFDPRegister(addr byte) (byte, error) {
	// opcode, 0x00, 0x00, A7-A0, dummy, D7-D0
	buf := []byte{flashCmdReadSFDP, 0, 0, addr, 0, 0}
	if err := f.exchange(buf); err != nil {
		return 0, err
	}
	return buf[5], nil
}

// ReadSFDP reads len(p) bytes of the SFDP table from addr. Reads larger
// than the transport's transaction limit are split.
func (f *Flash) ReadSFDP(addr uint32, p []byte) error {
	const cmdBytes = 5 // opcode + 24-bit address + dummy

	if err := checkAddr(addr); err != nil {
		return err
	}
	maxData, err := f.maxData(cmdBytes, len(p))
	if err != nil {
		return err
	}
	return f.readChunked(flashCmdReadSFDP, cmdBytes, addr, p, maxData)
}

// SFDPReadAt implements sfdp.ReaderAt.
func (f *Flash) SFDPReadAt(offset uint32, out []byte) error {
	return f.ReadSFDP(offset&0xFFFFFF, out)
}

// PowerDown puts the chip in deep power-down. Until ReleasePowerDown every
// other instruction, including status reads, is ignored.
func (f *Flash) PowerDown() error {
	if err := f.exchange([]byte{flashCmdPowerDown}); err != nil {
		return err
	}
	f.clock.Sleep(PowerDownDelay)
	return nil
}

// ReleasePowerDown wakes the chip from deep power-down.
func (f *Flash) ReleasePowerDown() error {
	if err := f.exchange([]byte{flashCmdReleasePowerDown}); err != nil {
		return err
	}
	f.clock.Sleep(PowerUpDelay)
	return nil
}

// ReleasePowerDownID wakes the chip and returns its device ID.
func (f *Flash) ReleasePowerDownID() (byte, error) {
	// opcode, 3 dummy bytes, ID7-ID0
	buf := make([]byte, 5)
	buf[0] = flashCmdReleasePowerDown
	if err := f.exchange(buf); err != nil {
		return 0, err
	}
	f.clock.Sleep(PowerUpDelay)
	return buf[4], nil
}

// Reset issues Enable Reset and Reset back to back. Any other instruction in
// between would disarm the reset.
func (f *Flash) Reset() error {
	if err := f.exchange([]byte{flashCmdEnableReset}); err != nil {
		return err
	}
	if err := f.exchange([]byte{flashCmdReset}); err != nil {
		return err
	}
	f.clock.Sleep(ResetDelay)
	return nil
}
