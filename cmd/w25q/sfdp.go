package main

import (
	"fmt"

	"github.com/gentam/w25q/sfdp"
	"github.com/spf13/cobra"
)

var sfdpCmd = &cobra.Command{
	Use:   "sfdp",
	Short: "Dump the SFDP parameter tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(func(s *session) error {
			t, err := sfdp.Parse(s.flash)
			if err != nil {
				return fmt.Errorf("read SFDP failed: %w", err)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "SFDP %d.%d, %d parameter table(s)\n", t.MajorRev, t.MinorRev, t.NumberOfParameterHeaders)
			for _, p := range t.Parameters {
				fmt.Fprintf(w, "table %04X v%d.%d at 0x%06X:\n", p.ID, p.MajorRev, p.MinorRev, p.Pointer)
				for i, dw := range p.Table {
					fmt.Fprintf(w, "  dword %2d: %08X\n", i+1, dw)
				}
			}
			if size, err := t.Size(); err == nil {
				fmt.Fprintf(w, "capacity: %d bytes\n", size)
			}
			if types, err := t.EraseTypes(); err == nil {
				for _, et := range types {
					fmt.Fprintf(w, "erase: %6d bytes, opcode %02X\n", et.Size, et.Opcode)
				}
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(sfdpCmd)
}
