package flashtest

import "encoding/binary"

// W25Q64SFDP returns the SFDP image of a W25Q64FV: one basic flash
// parameter table (JESD216 rev 1.5, 9 dwords) at 0x80.
func W25Q64SFDP() []byte {
	img := make([]byte, 0x100)
	for i := range img {
		img[i] = 0xFF
	}
	copy(img, []byte{
		'S', 'F', 'D', 'P', 0x05, 0x01, 0x00, 0xFF, // header, 1 parameter header
		0x00, 0x05, 0x01, 0x09, 0x80, 0x00, 0x00, 0xFF, // basic table, 9 dwords at 0x80
	})
	table := []uint32{
		0xFFF920E5, // 4KB erase opcode 20h
		0x03FFFFFF, // density: 64Mbit - 1
		0x6B08EB44,
		0x3B42BB08,
		0xFFFFFFEE,
		0xFF00FFFF,
		0xEB40FFFF,
		0x520F200C, // erase types 1 (4KB, 20h) and 2 (32KB, 52h)
		0xFF00D810, // erase type 3 (64KB, D8h)
	}
	for i, d := range table {
		binary.LittleEndian.PutUint32(img[0x80+4*i:], d)
	}
	return img
}
