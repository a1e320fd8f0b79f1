package sfdp

import (
	"testing"

	"github.com/gentam/w25q/flashtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseW25Q64(t *testing.T) {
	s, err := Parse(Buffer(flashtest.W25Q64SFDP()))
	require.NoError(t, err)

	assert.Equal(t, uint8(1), s.MajorRev)
	require.Len(t, s.Parameters, 1)
	p := s.Parameters[0]
	assert.Equal(t, uint16(BasicTableID), p.ID)
	assert.Equal(t, uint32(0x80), p.Pointer)
	assert.Len(t, p.Table, 9)

	size, err := s.Size()
	require.NoError(t, err)
	assert.Equal(t, 8<<20, size)

	op, err := s.Erase4KiBOpcode()
	require.NoError(t, err)
	assert.Equal(t, uint8(0x20), op)

	types, err := s.EraseTypes()
	require.NoError(t, err)
	assert.Equal(t, []EraseType{
		{Size: 4 << 10, Opcode: 0x20},
		{Size: 32 << 10, Opcode: 0x52},
		{Size: 64 << 10, Opcode: 0xD8},
	}, types)
}

func TestParseNoSignature(t *testing.T) {
	img := make(Buffer, 64)
	for i := range img {
		img[i] = 0xFF
	}
	_, err := Parse(img)
	assert.ErrorIs(t, err, ErrNoSFDP)
}

func TestParseTruncatedTable(t *testing.T) {
	img := flashtest.W25Q64SFDP()[:0x90]
	_, err := Parse(Buffer(img))
	assert.Error(t, err)
}

func TestTableDwordLookup(t *testing.T) {
	s, err := Parse(Buffer(flashtest.W25Q64SFDP()))
	require.NoError(t, err)

	_, err = s.TableDword(BasicTableID, 9)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = s.TableDword(0xFF84, 0)
	assert.ErrorIs(t, err, ErrNoTable)
}
