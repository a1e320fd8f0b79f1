// Package w25q drives Winbond W25Q series SPI NOR flash chips (and the many
// parts sharing their instruction set) over a byte-oriented SPI transport.
//
// A Flash owns one chip select line and talks through a Transport. The
// Transport is either a periph SPI connection (ConnTransport, Bus) or the
// GPIO bit-banged master in the bitbang package. Every instruction is framed
// by driving /CS low and back high; program and erase instructions are gated
// by a verified Write Enable and followed by a bounded readiness wait.
//
// # References:
//
// SPI Flash
//   - [W25Q64FV]: W25Q64FV Winbond Serial Flash Memory (https://www.winbond.com/resource-files/w25q64fv%20revs%2007182017.pdf)
//   - [W25Q128]: W25Q128JV-DTR Winbond Serial Flash Memory (https://www.winbond.com/resource-files/W25Q128JV_DTR%20RevD%2012232024%20Plus.pdf)
//   - [JESD216]: Serial Flash Discoverable Parameters (https://www.jedec.org/standards-documents/docs/jesd216b)
//
// FTDI (https://ftdichip.com/document/application-notes/)
//   - [FTDI-AN_108]: Command Processor for MPSSE and MCU Host Bus Emulation Modes (https://ftdichip.com/wp-content/uploads/2020/08/AN_108_Command_Processor_for_MPSSE_and_MCU_Host_Bus_Emulation_Modes.pdf)
//   - [FTDI-AN_114]: Interfacing FT2232H Hi-Speed Devices To SPI Bus (https://ftdichip.com/wp-content/uploads/2020/08/AN_114_FTDI_Hi_Speed_USB_To_SPI_Example.pdf)
//   - [FTDI-AN_135]: FTDI MPSSE Basics (https://ftdichip.com/wp-content/uploads/2020/08/AN_135_MPSSE_Basics.pdf)
//   - [FTDI-DS_FT2232H]: FT2232H Hi-Speed Dual USB UART/FIFO IC Data Sheet (https://ftdichip.com/wp-content/uploads/2024/09/DS_FT2232H.pdf)
//
// Boards
//   - [Lattice-EB82]: iCEstick User Manual (https://www.latticesemi.com/view_document?document_id=50701)
//   - [iCEBreaker]: iCEBreaker FPGA (https://github.com/icebreaker-fpga/icebreaker/blob/master/hardware/v1.0e/icebreaker-sch.pdf)
package w25q
