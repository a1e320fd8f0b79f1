package main

import (
	"fmt"
	"io"

	"github.com/gentam/w25q"
	"github.com/gentam/w25q/sfdp"
	"github.com/spf13/cobra"
	"periph.io/x/host/v3/ftdi"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show adapter and flash information",
	Long: `Show the FTDI adapter (type, EEPROM, pin functions) when the board uses
one, followed by the flash IDs, unique ID and SFDP-reported capacity.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *session) error {
			w := cmd.OutOrStdout()
			if s.dev != nil {
				if err := printFTDI(w, s.dev.FTDI); err != nil {
					return err
				}
				fmt.Fprintf(w, "FPGA done:       %t\n", s.dev.FPGADone())
				fmt.Fprintln(w)
			}
			return printFlash(w, s.flash)
		})
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// Reference: https://github.com/periph/cmd/tree/main/ftdi-list
func printFTDI(w io.Writer, ft *ftdi.FT232H) error {
	i := ftdi.Info{}
	ft.Info(&i)
	fmt.Fprintf(w, "Type:            %s\n", i.Type)
	fmt.Fprintf(w, "Vendor ID:       %#04x\n", i.VenID)
	fmt.Fprintf(w, "Device ID:       %#04x\n", i.DevID)

	ee := ftdi.EEPROM{}
	if err := ft.EEPROM(&ee); err != nil {
		return fmt.Errorf("failed to read EEPROM: %w", err)
	}
	fmt.Fprintf(w, "Manufacturer:    %s\n", ee.Manufacturer)
	fmt.Fprintf(w, "ManufacturerID:  %s\n", ee.ManufacturerID)
	fmt.Fprintf(w, "Desc:            %s\n", ee.Desc)
	fmt.Fprintf(w, "Serial:          %s\n", ee.Serial)

	h := ee.AsHeader()
	fmt.Fprintf(w, "MaxPower:        %dmA\n", h.MaxPower)
	fmt.Fprintf(w, "SelfPowered:     %x\n", h.SelfPowered)
	fmt.Fprintf(w, "RemoteWakeup:    %x\n", h.RemoteWakeup)
	fmt.Fprintf(w, "PullDownEnable:  %x\n", h.PullDownEnable)

	for _, p := range ft.Header() {
		fmt.Fprintf(w, "%s: %s\n", p, p.Function())
	}
	return nil
}

func printFlash(w io.Writer, f *w25q.Flash) error {
	fmt.Fprintf(w, "Manufacturer ID: %02X\n", f.ManufacturerID())
	fmt.Fprintf(w, "Device ID:       %02X\n", f.DeviceID())

	chip, err := f.Identify()
	if err != nil {
		return fmt.Errorf("read JEDEC ID failed: %w", err)
	}
	fmt.Fprintf(w, "JEDEC ID:        %06X\n", chip.JEDECID)
	fmt.Fprintf(w, "Part:            %s\n", chip)

	uid, err := f.ReadUniqueID()
	if err != nil {
		return fmt.Errorf("read unique ID failed: %w", err)
	}
	fmt.Fprintf(w, "Unique ID:       %016X\n", uid)

	if t, err := sfdp.Parse(f); err == nil {
		if size, err := t.Size(); err == nil {
			fmt.Fprintf(w, "SFDP capacity:   %d bytes\n", size)
		}
	} else {
		fmt.Fprintf(w, "SFDP:            %v\n", err)
	}
	return nil
}
