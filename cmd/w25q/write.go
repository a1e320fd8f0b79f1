package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/gentam/w25q"
	"github.com/spf13/cobra"
)

var (
	writeFile      string
	writeAddr      uint32
	writeBulkErase bool
	writeNoVerify  bool
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write flash memory",
	Long: `Program a file into flash at --addr.

The 4KB sectors the image touches are erased first, whole; with -e the entire
chip is erased instead. The result is read back and compared unless
--no-verify is given. -e alone only erases.`,
	Args: cobra.NoArgs,
	RunE: runWrite,
}

func init() {
	rootCmd.AddCommand(writeCmd)

	writeCmd.Flags().StringVarP(&writeFile, "file", "f", "", "input file")
	writeCmd.Flags().Uint32VarP(&writeAddr, "addr", "a", 0, "start address")
	writeCmd.Flags().BoolVarP(&writeBulkErase, "erase", "e", false, "bulk erase entire flash")
	writeCmd.Flags().BoolVar(&writeNoVerify, "no-verify", false, "skip read back")
}

func runWrite(cmd *cobra.Command, args []string) error {
	if writeFile == "" && !writeBulkErase {
		return errors.New("input file is required")
	}

	var data []byte
	if writeFile != "" {
		var err error
		if data, err = os.ReadFile(writeFile); err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
	}

	return withSession(func(s *session) error {
		if writeBulkErase {
			s.log.Info("erasing chip")
			if err := s.flash.EraseChip(); err != nil {
				return fmt.Errorf("bulk erase flash failed: %w", err)
			}
		} else {
			start, size := sectorSpan(writeAddr, len(data))
			s.log.Info("erasing", "addr", start, "bytes", size)
			if err := s.flash.Erase(start, size); err != nil {
				return fmt.Errorf("erase flash failed: %w", err)
			}
		}
		if data == nil {
			return nil
		}

		n, err := s.flash.Program(writeAddr, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("write flash failed after %d bytes: %w", n, err)
		}
		if writeNoVerify {
			return nil
		}

		got := make([]byte, len(data))
		if err := s.flash.Read(writeAddr, got); err != nil {
			return fmt.Errorf("read back failed: %w", err)
		}
		if i := mismatch(data, got); i >= 0 {
			return fmt.Errorf("verify failed at 0x%06X: wrote %02X, read %02X",
				writeAddr+uint32(i), data[i], got[i])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes at 0x%06X\n", n, writeAddr)
		return nil
	})
}

// sectorSpan returns the 4KB aligned range covering n bytes at addr.
func sectorSpan(addr uint32, n int) (start, size uint32) {
	const mask = w25q.SectorSize - 1
	start = addr &^ mask
	end := (addr + uint32(n) + mask) &^ mask
	return start, end - start
}

// mismatch returns the index of the first differing byte, or -1.
func mismatch(a, b []byte) int {
	for i := range a {
		if i >= len(b) || a[i] != b[i] {
			return i
		}
	}
	return -1
}
