package w25q_test

import (
	"testing"

	"github.com/gentam/w25q"
	"github.com/stretchr/testify/assert"
	"periph.io/x/host/v3/ftdi"
)

func TestFTDIPin(t *testing.T) {
	ft := &ftdi.FT232H{}

	_, err := w25q.FTDIPin(ft, "Z1")
	assert.ErrorContains(t, err, "unknown FT232H pin")

	_, err = w25q.FTDIPin(ft, "d4")
	assert.ErrorContains(t, err, "not available")
}
