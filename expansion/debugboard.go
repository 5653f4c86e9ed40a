package expansion

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/rcornwell/m68kemu/autoconfig"
	"github.com/rcornwell/m68kemu/snapshot"
)

// DebugBoard is a tiny Zorro-II board for getting text and a clean exit
// out of a guest with no working console: byte writes at offset 0 print
// a character to stderr, and any write at offset 4 halts the emulator
// with that byte as an exit code.
type DebugBoard struct {
	log *slog.Logger
	out *os.File
}

const (
	debugBoardSize   = 4 << 10
	debugPrintOffset = 0
	debugStopOffset  = 4
)

func NewDebugBoard(log *slog.Logger) (*DebugBoard, *autoconfig.Device, error) {
	d := &DebugBoard{log: log, out: os.Stderr}
	cfg := autoconfig.Config{
		Type:           autoconfig.ErtfDiagValid,
		Size:           debugBoardSize,
		ProductNumber:  0x89,
		HWManufacturer: 1337,
		SerialNo:       2,
	}
	dev, err := autoconfig.NewDevice("debugboard", cfg, d, nil)
	if err != nil {
		return nil, nil, err
	}
	return d, dev, nil
}

func (d *DebugBoard) Reset() {}

func (d *DebugBoard) ReadByte(offset uint32) (uint8, error)  { return 0xFF, nil }
func (d *DebugBoard) ReadWord(offset uint32) (uint16, error) { return 0xFFFF, nil }

func (d *DebugBoard) WriteByte(offset uint32, v uint8) error {
	switch offset {
	case debugPrintOffset:
		fmt.Fprintf(d.out, "%c", v)
	case debugStopOffset:
		if d.log != nil {
			d.log.Info("debugboard: guest requested stop", "code", v)
		}
		os.Exit(int(v))
	}
	return nil
}

func (d *DebugBoard) WriteWord(offset uint32, v uint16) error {
	return d.WriteByte(offset, uint8(v))
}

func (d *DebugBoard) Save(w *snapshot.Writer) {
	w.OpenScope("expansion.debugboard", 1)
	w.CloseScope()
}

func (d *DebugBoard) Load(r *snapshot.Reader) error {
	if err := r.OpenScope("expansion.debugboard", 1); err != nil {
		return err
	}
	return r.CloseScope()
}
