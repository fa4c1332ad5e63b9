package library

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/llehouerou/cadence/internal/state"
)

// newTestLibrary returns a library over an in-memory database.
func newTestLibrary(t *testing.T) *Library {
	t.Helper()

	m, err := state.OpenMemory()
	if err != nil {
		t.Fatalf("open state: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return New(m.DB(), AutoGrant, nil)
}

// wavBytes returns a silent 16-bit mono PCM wav of the given length.
func wavBytes(seconds int) []byte {
	const rate = 8000
	dataLen := uint32(rate * 2 * seconds)

	var b bytes.Buffer
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, 36+dataLen)
	b.WriteString("WAVEfmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&b, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(rate*2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, dataLen)
	b.Write(make([]byte, dataLen))
	return b.Bytes()
}

// id3Bytes returns an ID3v2.3 tag with the given text frames followed by
// filler that is not valid audio.
func id3Bytes(frames ...[2]string) []byte {
	var body bytes.Buffer
	for _, f := range frames {
		body.WriteString(f[0])
		_ = binary.Write(&body, binary.BigEndian, uint32(len(f[1])+1))
		body.Write([]byte{0, 0, 0}) // flags, ISO-8859-1
		body.WriteString(f[1])
	}

	size := body.Len()
	var b bytes.Buffer
	b.WriteString("ID3")
	b.Write([]byte{3, 0, 0})
	b.Write([]byte{
		byte(size >> 21 & 0x7f),
		byte(size >> 14 & 0x7f),
		byte(size >> 7 & 0x7f),
		byte(size & 0x7f),
	})
	b.Write(body.Bytes())
	b.Write(make([]byte, 64))
	return b.Bytes()
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}
