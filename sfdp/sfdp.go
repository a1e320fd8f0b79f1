// Package sfdp parses the Serial Flash Discoverable Parameters table
// (JESD216) that W25Q and most other SPI NOR flash chips expose through the
// Read SFDP instruction (5Ah).
//
// Useful references:
//   - [JESD216]: Serial Flash Discoverable Parameters
//   - [W25Q64FV|6.2.36 Read SFDP Register (5Ah)]
package sfdp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Signature is "SFDP" read as a little-endian dword.
	Signature = 0x50444653

	BasicTableID = 0xFF00

	basicTableEraseDword   = 0
	basicTableDensityDword = 1
	basicTableEraseTypes12 = 7
	basicTableEraseTypes34 = 8
)

var (
	ErrNoSFDP     = errors.New("chip does not support SFDP")
	ErrNoTable    = errors.New("parameter table not found")
	ErrOutOfRange = errors.New("dword out of range")
)

// ReaderAt reads from the SFDP address space.
type ReaderAt interface {
	SFDPReadAt(offset uint32, out []byte) error
}

// Buffer holds an SFDP image in memory. Primarily used for testing.
type Buffer []byte

// SFDPReadAt implements ReaderAt for Buffer.
func (b Buffer) SFDPReadAt(offset uint32, out []byte) error {
	offset &= 0x00FFFFFF
	if int(offset)+len(out) > len(b) {
		return fmt.Errorf("offset 0x%X+%d beyond %d byte image", offset, len(out), len(b))
	}
	copy(out, b[offset:])
	return nil
}

type Header struct {
	MinorRev uint8
	MajorRev uint8
	// NumberOfParameterHeaders is the decoded count (the table stores it
	// minus one).
	NumberOfParameterHeaders int
}

type ParameterHeader struct {
	// ID is IdMSB:IdLSB. The basic flash parameter table is 0xFF00.
	ID       uint16
	MinorRev uint8
	MajorRev uint8
	// Length is in dwords.
	Length  uint8
	Pointer uint32
}

type Parameter struct {
	ParameterHeader
	Table []uint32
}

type SFDP struct {
	Header
	Parameters []Parameter
}

const (
	headerSize          = 8
	parameterHeaderSize = 8
)

// Parse reads the SFDP header, every parameter header and every parameter
// table from r.
func Parse(r ReaderAt) (*SFDP, error) {
	buf := make([]byte, headerSize)
	if err := r.SFDPReadAt(0, buf); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint32(buf) != Signature {
		return nil, ErrNoSFDP
	}
	s := &SFDP{
		Header: Header{
			MinorRev:                 buf[4],
			MajorRev:                 buf[5],
			NumberOfParameterHeaders: int(buf[6]) + 1,
		},
	}

	headers := make([]byte, parameterHeaderSize*s.NumberOfParameterHeaders)
	if err := r.SFDPReadAt(headerSize, headers); err != nil {
		return nil, err
	}
	s.Parameters = make([]Parameter, s.NumberOfParameterHeaders)
	for i := range s.Parameters {
		h := headers[i*parameterHeaderSize:]
		p := &s.Parameters[i]
		p.ParameterHeader = ParameterHeader{
			ID:       uint16(h[7])<<8 | uint16(h[0]),
			MinorRev: h[1],
			MajorRev: h[2],
			Length:   h[3],
			Pointer:  uint32(h[4]) | uint32(h[5])<<8 | uint32(h[6])<<16,
		}
		table := make([]byte, int(p.Length)*4)
		if err := r.SFDPReadAt(p.Pointer, table); err != nil {
			return nil, fmt.Errorf("parameter table %04X: %w", p.ID, err)
		}
		p.Table = make([]uint32, p.Length)
		for j := range p.Table {
			p.Table[j] = binary.LittleEndian.Uint32(table[j*4:])
		}
	}
	return s, nil
}

// TableDword returns dword n (0-based) of the parameter table with the given
// ID.
func (s *SFDP) TableDword(id uint16, n int) (uint32, error) {
	for _, p := range s.Parameters {
		if p.ID != id {
			continue
		}
		if n < 0 || n >= len(p.Table) {
			return 0, ErrOutOfRange
		}
		return p.Table[n], nil
	}
	return 0, ErrNoTable
}

// Size returns the flash capacity in bytes.
func (s *SFDP) Size() (int, error) {
	density, err := s.TableDword(BasicTableID, basicTableDensityDword)
	if err != nil {
		return 0, err
	}
	if density&0x80000000 != 0 {
		return 0, fmt.Errorf("chip >= 2GiB")
	}
	return int(density+1) / 8, nil
}

// Erase4KiBOpcode returns the opcode of the 4KiB erase instruction.
func (s *SFDP) Erase4KiBOpcode() (uint8, error) {
	dword, err := s.TableDword(BasicTableID, basicTableEraseDword)
	if err != nil {
		return 0xFF, err
	}
	opcode := uint8(dword >> 8)
	if opcode == 0xFF {
		return 0xFF, fmt.Errorf("no 4KiB erase opcode")
	}
	return opcode, nil
}

// EraseType is one of the up to four erase granularities a chip declares.
type EraseType struct {
	Size   int
	Opcode uint8
}

// EraseTypes returns the erase granularities declared in the basic table,
// skipping unused slots.
func (s *SFDP) EraseTypes() ([]EraseType, error) {
	var types []EraseType
	for _, n := range []int{basicTableEraseTypes12, basicTableEraseTypes34} {
		dword, err := s.TableDword(BasicTableID, n)
		if err != nil {
			return nil, err
		}
		for _, shift := range []uint{0, 16} {
			exp := uint8(dword >> shift)
			if exp == 0 {
				continue
			}
			types = append(types, EraseType{
				Size:   1 << exp,
				Opcode: uint8(dword >> (shift + 8)),
			})
		}
	}
	return types, nil
}
