package w25q_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/gentam/w25q"
	"github.com/gentam/w25q/flashtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
)

// startProgram issues Write Enable and a one byte Page Program directly on
// the chip, leaving it busy without the driver waiting for it.
func startProgram(t *testing.T, chip *flashtest.Chip) {
	t.Helper()
	for _, frame := range [][]byte{{0x06}, {0x02, 0, 0, 0, 0xAA}} {
		require.NoError(t, chip.CS().Out(gpio.Low))
		for _, b := range frame {
			_, err := chip.Transfer(b)
			require.NoError(t, err)
		}
		require.NoError(t, chip.CS().Out(gpio.High))
	}
	chip.ResetLog()
}

func TestReadyWaitReady(t *testing.T) {
	f, chip, _ := newFlash(t)

	require.NoError(t, f.ReadyWait(10*time.Millisecond))
	assert.Equal(t, [][]byte{{0x05, 0}}, chip.Frames)
	assert.Equal(t, w25q.CodeNone, f.ErrorCode())

	ready, err := f.Ready()
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestReadyWaitPollsUntilIdle(t *testing.T) {
	f, chip, _ := newFlash(t)
	chip.BusyPolls = 4
	startProgram(t, chip)

	ready, err := f.Ready()
	require.NoError(t, err)
	assert.False(t, ready)

	require.NoError(t, f.ReadyWait(time.Second))
	assert.Len(t, chip.Frames, 5, "one Ready poll, three busy polls, one idle poll")
	assert.Equal(t, byte(0xAA), chip.Mem[0])
}

func TestReadyWaitTimeout(t *testing.T) {
	f, chip, _ := newFlash(t)
	chip.StuckBusy = true
	startProgram(t, chip)

	err := f.ReadyWait(50 * time.Millisecond)
	require.ErrorIs(t, err, w25q.ErrTimeout)
	var te *w25q.TimeoutError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 50*time.Millisecond, te.Timeout)
	assert.True(t, te.Status.Busy())
	assert.Contains(t, err.Error(), "50ms")

	assert.Len(t, framesWith(chip, 0x05), 51)
	assert.Equal(t, w25q.CodeTimeout, f.ErrorCode())
}

func TestReadyWaitDefaultTimeout(t *testing.T) {
	f, chip, _ := newFlash(t)
	chip.StuckBusy = true
	startProgram(t, chip)

	err := f.ReadyWait(0)
	require.ErrorIs(t, err, w25q.ErrTimeout)
	var te *w25q.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, w25q.DefaultReadyTimeout, te.Timeout)
	assert.Len(t, framesWith(chip, 0x05), int(w25q.DefaultReadyTimeout/time.Millisecond)+1)
}

func TestReadyWaitLogsTimeout(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f, chip, _ := newFlash(t, w25q.WithLogger(log))
	chip.StuckBusy = true
	startProgram(t, chip)

	require.Error(t, f.ReadyWait(5*time.Millisecond))
	assert.Contains(t, buf.String(), "flash ready wait timed out")
	assert.Contains(t, buf.String(), "timeout=5ms")
}

func TestEnableWrite(t *testing.T) {
	f, chip, _ := newFlash(t)

	require.NoError(t, f.EnableWrite())
	assert.Equal(t, []byte{0x06, 0x05}, chip.Opcodes())
	sr, err := f.ReadStatusRegister1()
	require.NoError(t, err)
	assert.True(t, sr.WriteEnabled())

	require.NoError(t, f.DisableWrite())
	require.NoError(t, f.DisableWrite(), "already clear")
	sr, err = f.ReadStatusRegister1()
	require.NoError(t, err)
	assert.False(t, sr.WriteEnabled())
}

func TestEnableWriteProtected(t *testing.T) {
	f, chip, _ := newFlash(t)
	chip.WriteProtected = true

	assert.ErrorIs(t, f.EnableWrite(), w25q.ErrWriteEnable)
	assert.Equal(t, w25q.CodeNone, f.ErrorCode())
}

func TestWriteEnableClearsAfterProgram(t *testing.T) {
	f, chip, _ := newFlash(t)
	chip.BusyPolls = 2

	require.NoError(t, f.WritePage(0x10, []byte{0x12}))
	sr, err := f.ReadStatusRegister1()
	require.NoError(t, err)
	assert.False(t, sr.WriteEnabled())
	assert.False(t, sr.Busy())
}

func TestReadStatusRegister2(t *testing.T) {
	f, chip, _ := newFlash(t)

	sr2, err := f.ReadStatusRegister2()
	require.NoError(t, err)
	assert.Equal(t, w25q.StatusRegister2(0), sr2)
	assert.Equal(t, [][]byte{{0x35, 0}}, chip.Frames)
}

func TestStatusRegisterString(t *testing.T) {
	for _, tt := range []struct {
		sr   w25q.StatusRegister
		want string
	}{
		{0x00, "00000000"},
		{0x03, "00000011 WEL,BUSY"},
		{0x9C, "10011100 SRP0,BP2,BP1,BP0"},
		{0x60, "01100000 SEC,TB"},
	} {
		assert.Equal(t, tt.want, tt.sr.String())
	}
}

func TestStatusRegister2String(t *testing.T) {
	sr := w25q.StatusRegister2(0x42)
	assert.Equal(t, "01000010 CMP,QE", sr.String())
	assert.True(t, sr.ComplementProtect())
	assert.False(t, sr.SecurityLock(1))

	sr = w25q.StatusRegister2(0b1010_1001)
	assert.Equal(t, "10101001 SUS,LB3,LB1,SRP1", sr.String())
	assert.True(t, sr.SecurityLock(3))
	assert.False(t, sr.SecurityLock(2))
	assert.False(t, sr.SecurityLock(4))
}

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "none", w25q.CodeNone.String())
	assert.Equal(t, "timeout", w25q.CodeTimeout.String())
	assert.Equal(t, "ErrorCode(0x42)", w25q.ErrorCode(0x42).String())
}
