package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	eraseAddr uint32
	eraseSize uint32
	eraseChip bool
)

var eraseCmd = &cobra.Command{
	Use:   "erase",
	Short: "Erase flash memory",
	Long: `Erase --size bytes from --addr, both 4KB aligned, with the largest erase
units that fit (64KB, 32KB, 4KB), or the whole chip with --chip.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !eraseChip && eraseSize == 0 {
			return errors.New("--size or --chip is required")
		}
		return withSession(func(s *session) error {
			if eraseChip {
				if err := s.flash.EraseChip(); err != nil {
					return fmt.Errorf("chip erase failed: %w", err)
				}
				return nil
			}
			if err := s.flash.Erase(eraseAddr, eraseSize); err != nil {
				return fmt.Errorf("erase failed: %w", err)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(eraseCmd)

	eraseCmd.Flags().Uint32VarP(&eraseAddr, "addr", "a", 0, "start address")
	eraseCmd.Flags().Uint32VarP(&eraseSize, "size", "s", 0, "number of bytes")
	eraseCmd.Flags().BoolVar(&eraseChip, "chip", false, "erase the entire chip")
	eraseCmd.MarkFlagsMutuallyExclusive("size", "chip")
}
