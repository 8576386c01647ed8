// Package checksum computes the CRC32C digests stored in the catalogue.
//
// Local files and remote objects are hashed the same way so that the two
// columns of a catalogue row can be compared directly.
package checksum

import (
	"fmt"
	"io"

	"github.com/klauspost/crc32"
	"github.com/spf13/afero"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Reader streams r and returns its CRC32C as eight lowercase hex digits.
func Reader(r io.Reader) (string, error) {
	h := crc32.New(castagnoli)
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to hash stream: %w", err)
	}
	return fmt.Sprintf("%08x", h.Sum32()), nil
}

// File returns the CRC32C of the file at path.
func File(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return Reader(f)
}

// Bytes returns the CRC32C of b.
func Bytes(b []byte) string {
	return fmt.Sprintf("%08x", crc32.Checksum(b, castagnoli))
}
