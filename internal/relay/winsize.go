package relay

import (
	"encoding/binary"
	"fmt"
	"os"

	ptylib "github.com/creack/pty"
)

// RecordSize is the length of one window-size record on the resize channel.
const RecordSize = 8

// Winsize is a window-size record: four native-endian uint16 fields laid
// out like struct winsize.
type Winsize struct {
	Rows uint16
	Cols uint16
	X    uint16
	Y    uint16
}

// DecodeWinsize decodes exactly one record.
func DecodeWinsize(record []byte) (Winsize, error) {
	if len(record) != RecordSize {
		return Winsize{}, fmt.Errorf("window-size record is %d bytes, want %d", len(record), RecordSize)
	}
	return Winsize{
		Rows: binary.NativeEndian.Uint16(record[0:2]),
		Cols: binary.NativeEndian.Uint16(record[2:4]),
		X:    binary.NativeEndian.Uint16(record[4:6]),
		Y:    binary.NativeEndian.Uint16(record[6:8]),
	}, nil
}

// MarshalBinary encodes ws in the resize channel's wire format.
func (ws Winsize) MarshalBinary() ([]byte, error) {
	record := make([]byte, RecordSize)
	binary.NativeEndian.PutUint16(record[0:2], ws.Rows)
	binary.NativeEndian.PutUint16(record[2:4], ws.Cols)
	binary.NativeEndian.PutUint16(record[4:6], ws.X)
	binary.NativeEndian.PutUint16(record[6:8], ws.Y)
	return record, nil
}

// Apply sets ws as the window size of the terminal behind f. On a PTY
// master this also delivers SIGWINCH to the foreground process group.
func (ws Winsize) Apply(f *os.File) error {
	return ptylib.Setsize(f, &ptylib.Winsize{
		Rows: ws.Rows,
		Cols: ws.Cols,
		X:    ws.X,
		Y:    ws.Y,
	})
}

// GetWinsize reads the window size of the terminal behind f.
func GetWinsize(f *os.File) (Winsize, error) {
	size, err := ptylib.GetsizeFull(f)
	if err != nil {
		return Winsize{}, err
	}
	return Winsize{Rows: size.Rows, Cols: size.Cols, X: size.X, Y: size.Y}, nil
}
