package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	readCount int
	readAddr  uint32
	readOut   string
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read flash memory",
	Long: `Read flash memory from --addr. Without -o the data is hexdumped.

Examples:
  w25q read -n 64 --addr 0x100000
  w25q read -n 0 -o dump.bin          # whole chip`,
	Args: cobra.NoArgs,
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().IntVarP(&readCount, "count", "n", 256, "number of bytes to read (0: up to the end of the chip)")
	readCmd.Flags().Uint32VarP(&readAddr, "addr", "a", 0, "start address")
	readCmd.Flags().StringVarP(&readOut, "output", "o", "", "output file (default: hexdump)")
}

func runRead(cmd *cobra.Command, args []string) error {
	if readCount < 0 {
		return errors.New("-n must not be negative")
	}
	return withSession(func(s *session) error {
		n := readCount
		if n == 0 {
			chip, err := s.flash.Identify()
			if err != nil {
				return fmt.Errorf("read flash ID failed: %w", err)
			}
			if chip.Capacity == 0 {
				return fmt.Errorf("unknown capacity of %s, use -n", chip)
			}
			n = chip.Capacity - int(readAddr)
			if n <= 0 {
				return fmt.Errorf("address 0x%06X beyond %s", readAddr, chip)
			}
		}

		data := make([]byte, n)
		if err := s.flash.Read(readAddr, data); err != nil {
			return fmt.Errorf("read flash failed: %w", err)
		}
		if readOut == "" {
			fmt.Fprint(cmd.OutOrStdout(), hex.Dump(data))
			return nil
		}
		if err := os.WriteFile(readOut, data, 0644); err != nil {
			return fmt.Errorf("write file failed: %w", err)
		}
		s.log.Info("read", "addr", readAddr, "bytes", n, "file", readOut)
		return nil
	})
}
