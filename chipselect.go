package w25q

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// selectChip opens the transport transaction, if any, and drives /CS low.
func (f *Flash) selectChip() error {
	if f.cs == nil {
		return ErrNoChipSelect
	}
	tr, framed := f.t.(Transactor)
	if framed {
		if err := tr.BeginTransaction(); err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
	}
	if err := f.cs.Out(gpio.Low); err != nil {
		if framed {
			tr.EndTransaction()
		}
		return fmt.Errorf("select %s: %w", f.cs, err)
	}
	return nil
}

// deselectChip drives /CS high and closes the transport transaction, if any.
func (f *Flash) deselectChip() error {
	err := f.cs.Out(gpio.High)
	if err != nil {
		err = fmt.Errorf("deselect %s: %w", f.cs, err)
	}
	if tr, ok := f.t.(Transactor); ok {
		if tErr := tr.EndTransaction(); tErr != nil && err == nil {
			err = fmt.Errorf("end transaction: %w", tErr)
		}
	}
	return err
}

// exchange runs one instruction: select, shift every byte of buf out while
// the bytes shifted in replace it, deselect. Deselect always runs; the first
// error wins.
func (f *Flash) exchange(buf []byte) (err error) {
	if err = f.selectChip(); err != nil {
		return err
	}
	defer func() {
		if csErr := f.deselectChip(); csErr != nil && err == nil {
			err = csErr
		}
	}()
	return f.transfer(buf)
}

func (f *Flash) transfer(buf []byte) error {
	if tx, ok := f.t.(txer); ok {
		return tx.Tx(buf, buf)
	}
	for i, b := range buf {
		in, err := f.t.Transfer(b)
		if err != nil {
			return err
		}
		buf[i] = in
	}
	return nil
}
