package artifact

import (
	"crypto/md5" //nolint:gosec // MD5 is the checksum consumers verify against
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Checksum returns the lowercase hex MD5 of the file at path and its size.
func Checksum(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := md5.New() //nolint:gosec
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// ChecksumBytes returns the lowercase hex MD5 of b.
func ChecksumBytes(b []byte) string {
	sum := md5.Sum(b) //nolint:gosec
	return hex.EncodeToString(sum[:])
}
