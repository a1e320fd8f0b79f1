package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gentam/w25q/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectorSpan(t *testing.T) {
	for _, tt := range []struct {
		addr        uint32
		n           int
		start, size uint32
	}{
		{0, 0, 0, 0},
		{0, 1, 0, 0x1000},
		{0, 0x1000, 0, 0x1000},
		{0x0FFF, 2, 0, 0x2000},
		{0x12345, 0x10000, 0x12000, 0x11000},
	} {
		start, size := sectorSpan(tt.addr, tt.n)
		assert.Equal(t, tt.start, start, "addr 0x%X n %d", tt.addr, tt.n)
		assert.Equal(t, tt.size, size, "addr 0x%X n %d", tt.addr, tt.n)
	}
}

func TestMismatch(t *testing.T) {
	assert.Equal(t, -1, mismatch([]byte{1, 2, 3}, []byte{1, 2, 3}))
	assert.Equal(t, 1, mismatch([]byte{1, 2, 3}, []byte{1, 0, 3}))
	assert.Equal(t, 2, mismatch([]byte{1, 2, 3}, []byte{1, 2}))
}

func TestLoadBoardFlagsOverride(t *testing.T) {
	t.Cleanup(func() { boardFile, transport, clock = "", "", "" })

	b, err := loadBoard()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), b)

	path := filepath.Join(t.TempDir(), "rpi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport: spidev\nport: SPI0.0\npins: {cs: GPIO8}\n"), 0o644))
	boardFile, clock = path, "1MHz"
	b, err = loadBoard()
	require.NoError(t, err)
	assert.Equal(t, config.TransportSPIDev, b.Transport)
	assert.Equal(t, "1MHz", b.Clock)

	boardFile, transport = "", "spidev"
	_, err = loadBoard()
	assert.ErrorContains(t, err, "requires port")
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"info", "id", "status", "read", "write", "erase", "sfdp", "reset", "sleep", "wake"} {
		assert.Contains(t, names, want)
	}
}
