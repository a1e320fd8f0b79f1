package w25q

import (
	"fmt"
	"strings"
	"time"
)

// StatusRegister represents status register-1 of the flash chip.
//
//	Bits| [W25Q64FV|7.1 Status Registers]
//	----+---------------------------------
//	7   | SRP0: Status Register Protect 0
//	6   | SEC: Sector/Block protect
//	5   | TB: Top/Bottom protect
//	4:2 | BP2-0: Block Protect bit 2-0
//	1   | WEL: Write Enable Latch
//	0   | BUSY: Erase/Write in progress
type StatusRegister byte

const (
	statusBusy        StatusRegister = 1 << 0
	statusWriteEnable StatusRegister = 1 << 1
)

func (sr StatusRegister) StatusRegisterProtect() bool { return sr&(1<<7) != 0 }
func (sr StatusRegister) SectorProtect() bool         { return sr&(1<<6) != 0 }
func (sr StatusRegister) TopBottom() bool             { return sr&(1<<5) != 0 }
func (sr StatusRegister) BlockProtect2() bool         { return sr&(1<<4) != 0 }
func (sr StatusRegister) BlockProtect1() bool         { return sr&(1<<3) != 0 }
func (sr StatusRegister) BlockProtect0() bool         { return sr&(1<<2) != 0 }
func (sr StatusRegister) WriteEnabled() bool          { return sr&statusWriteEnable != 0 }
func (sr StatusRegister) Busy() bool                  { return sr&statusBusy != 0 }

func (sr StatusRegister) String() string {
	return bitString(byte(sr), []flagName{
		{sr.StatusRegisterProtect(), "SRP0"},
		{sr.SectorProtect(), "SEC"},
		{sr.TopBottom(), "TB"},
		{sr.BlockProtect2(), "BP2"},
		{sr.BlockProtect1(), "BP1"},
		{sr.BlockProtect0(), "BP0"},
		{sr.WriteEnabled(), "WEL"},
		{sr.Busy(), "BUSY"},
	})
}

// StatusRegister2 represents status register-2.
//
//	Bits| [W25Q64FV|7.1 Status Registers]
//	----+---------------------------------
//	7   | SUS: Erase/Program Suspend
//	6   | CMP: Complement Protect
//	5:3 | LB3-1: Security Register Lock Bits
//	2   | Reserved
//	1   | QE: Quad Enable
//	0   | SRP1: Status Register Protect 1
type StatusRegister2 byte

func (sr StatusRegister2) Suspended() bool              { return sr&(1<<7) != 0 }
func (sr StatusRegister2) ComplementProtect() bool      { return sr&(1<<6) != 0 }
func (sr StatusRegister2) SecurityLock(n int) bool      { return n >= 1 && n <= 3 && sr&(1<<(2+n)) != 0 }
func (sr StatusRegister2) QuadEnabled() bool            { return sr&(1<<1) != 0 }
func (sr StatusRegister2) StatusRegisterProtect1() bool { return sr&(1<<0) != 0 }

func (sr StatusRegister2) String() string {
	return bitString(byte(sr), []flagName{
		{sr.Suspended(), "SUS"},
		{sr.ComplementProtect(), "CMP"},
		{sr.SecurityLock(3), "LB3"},
		{sr.SecurityLock(2), "LB2"},
		{sr.SecurityLock(1), "LB1"},
		{sr.QuadEnabled(), "QE"},
		{sr.StatusRegisterProtect1(), "SRP1"},
	})
}

type flagName struct {
	set  bool
	name string
}

func bitString(v byte, flags []flagName) string {
	b := fmt.Sprintf("%08b", v)
	s := []string{}
	for _, f := range flags {
		if f.set {
			s = append(s, f.name)
		}
	}
	if len(s) == 0 {
		return b
	}
	return b + " " + strings.Join(s, ",")
}

func (f *Flash) ReadStatusRegister1() (StatusRegister, error) {
	buf := []byte{flashCmdReadStatusRegister1, 0}
	if err := f.exchange(buf); err != nil {
		return 0, err
	}
	return StatusRegister(buf[1]), nil
}

func (f *Flash) ReadStatusRegister2() (StatusRegister2, error) {
	buf := []byte{flashCmdReadStatusRegister2, 0}
	if err := f.exchange(buf); err != nil {
		return 0, err
	}
	return StatusRegister2(buf[1]), nil
}

// Ready reports whether the BUSY bit of status register-1 is clear.
func (f *Flash) Ready() (bool, error) {
	sr, err := f.ReadStatusRegister1()
	if err != nil {
		return false, err
	}
	return !sr.Busy(), nil
}

// ReadyWait busy-polls status register-1 until BUSY clears or more than
// timeout has elapsed. A timeout of zero or less means DefaultReadyTimeout.
// On timeout the sticky error code becomes CodeTimeout and the returned
// error matches ErrTimeout.
//
// The status is always read once more before the deadline is checked, so a
// chip that finished late is still reported ready.
func (f *Flash) ReadyWait(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	start := f.clock.Now()
	for {
		sr, err := f.ReadStatusRegister1()
		if err != nil {
			return err
		}
		if !sr.Busy() {
			return nil
		}
		if f.clock.Now().Sub(start) > timeout {
			f.code = CodeTimeout
			f.log.Debug("flash ready wait timed out", "timeout", timeout, "status", sr)
			return &TimeoutError{Timeout: timeout, Status: sr}
		}
	}
}

// EnableWrite sets the write enable latch and verifies it by reading
// status register-1 back.
func (f *Flash) EnableWrite() error {
	if err := f.exchange([]byte{flashCmdWriteEnable}); err != nil {
		return err
	}
	sr, err := f.ReadStatusRegister1()
	if err != nil {
		return err
	}
	if !sr.WriteEnabled() {
		f.log.Debug("write enable not latched", "status", sr)
		return ErrWriteEnable
	}
	return nil
}

// DisableWrite clears the write enable latch and verifies it by reading
// status register-1 back. It succeeds on a latch that is already clear.
func (f *Flash) DisableWrite() error {
	if err := f.exchange([]byte{flashCmdWriteDisable}); err != nil {
		return err
	}
	sr, err := f.ReadStatusRegister1()
	if err != nil {
		return err
	}
	if sr.WriteEnabled() {
		f.log.Debug("write enable still latched", "status", sr)
		return ErrWriteDisable
	}
	return nil
}
