// Command w25q reads, writes and erases W25Q SPI NOR flash through an
// FT2232H board, a Linux spidev port or bit-banged GPIO.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	boardFile string
	transport string
	clock     string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "w25q",
	Short: "SPI NOR flash programmer",
	Long: `Read, write and erase Winbond W25Q (and compatible) SPI NOR flash.

The default board is an iCEstick / iCEBreaker style FT2232H with the flash on
channel A; the FPGA is held in reset while the flash is accessed. Other wiring
is described by a YAML board profile (--board).

Examples:
  w25q id                                  # JEDEC ID and part name
  w25q read -n 1024                        # hexdump the first 1KiB
  w25q read -n 0 -o dump.bin               # read the whole chip
  w25q write -f top.bin                    # erase as needed, program, verify
  w25q --board rpi.yaml status             # status registers over spidev`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&boardFile, "board", "b", "", "board profile (YAML)")
	rootCmd.PersistentFlags().StringVarP(&transport, "transport", "t", "",
		"override the board transport: ftdi, ftdi-bitbang, spidev, bitbang")
	rootCmd.PersistentFlags().StringVar(&clock, "clock", "", "override the board SPI clock, e.g. 10MHz")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log flash diagnostics to stderr")
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
