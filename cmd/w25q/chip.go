package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Print the JEDEC ID and part name",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *session) error {
			chip, err := s.flash.Identify()
			if err != nil {
				return fmt.Errorf("read flash ID failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%06X\t%s\n", chip.JEDECID, chip)
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the status registers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *session) error {
			sr1, err := s.flash.ReadStatusRegister1()
			if err != nil {
				return fmt.Errorf("read flash status register failed: %w", err)
			}
			sr2, err := s.flash.ReadStatusRegister2()
			if err != nil {
				return fmt.Errorf("read flash status register failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "SR1: %s\nSR2: %s\n", sr1, sr2)
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Software reset the flash (66h, 99h)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *session) error {
			return s.flash.Reset()
		})
	},
}

var sleepCmd = &cobra.Command{
	Use:   "sleep",
	Short: "Put the flash in deep power-down",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *session) error {
			s.sleep = false
			return s.flash.PowerDown()
		})
	},
}

var wakeCmd = &cobra.Command{
	Use:   "wake",
	Short: "Release the flash from deep power-down and leave it awake",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *session) error {
			s.sleep = false
			id, err := s.flash.ReleasePowerDownID()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "device ID %02X\n", id)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(idCmd, statusCmd, resetCmd, sleepCmd, wakeCmd)
}
