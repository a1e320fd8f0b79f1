package w25q

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTimeout is matched by every error caused by the chip staying busy
	// longer than the operation's budget.
	ErrTimeout = errors.New("timeout waiting for flash ready")

	// ErrWriteEnable is returned when the write enable latch did not set
	// after a Write Enable instruction.
	ErrWriteEnable = errors.New("write enable latch not set")

	// ErrWriteDisable is returned when the write enable latch did not clear
	// after a Write Disable instruction.
	ErrWriteDisable = errors.New("write enable latch not cleared")

	ErrPageSize     = fmt.Errorf("data must not exceed %d bytes", PageSize)
	ErrAddressRange = errors.New("address out of 24-bit range")
	ErrAlignment    = fmt.Errorf("erase range must be %d byte aligned", SectorSize)
	ErrNoChipSelect = errors.New("chip select pin not bound")

	// ErrTxLimit is returned when the transport's transaction limit cannot
	// hold an instruction header and at least one data byte.
	ErrTxLimit = errors.New("transaction limit too small for instruction")
)

// TimeoutError reports a readiness wait that ran out of time.
type TimeoutError struct {
	Timeout time.Duration
	Status  StatusRegister // last status observed
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("flash still busy after %v (status %s)", e.Timeout, e.Status)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// ErrorCode is the sticky error slot of a Flash. It holds the outcome of the
// last readiness wait that failed until a read succeeds or ClearError is
// called.
type ErrorCode byte

const (
	CodeNone    ErrorCode = 0x00
	CodeTimeout ErrorCode = 0x10
)

func (c ErrorCode) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeTimeout:
		return "timeout"
	}
	return fmt.Sprintf("ErrorCode(0x%02X)", byte(c))
}

func checkAddr(addr uint32) error {
	const max24 = 1<<24 - 1 // 0xFFFFFF
	if addr > max24 {
		return fmt.Errorf("address 0x%X: %w", addr, ErrAddressRange)
	}
	return nil
}
