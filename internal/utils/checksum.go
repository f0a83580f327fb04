package utils

import (
	"encoding/hex"
	"hash"
	"io"

	"golang.org/x/crypto/blake2b"
)

// Checksum accumulates a BLAKE2b-256 digest over every byte read through it.
type Checksum struct {
	h hash.Hash
}

func NewChecksum() *Checksum {
	h, _ := blake2b.New256(nil) // only fails for keys longer than 64 bytes
	return &Checksum{h: h}
}

// Reader returns r teed into the digest.
func (c *Checksum) Reader(r io.Reader) io.Reader {
	return io.TeeReader(r, c.h)
}

func (c *Checksum) Write(p []byte) (int, error) { return c.h.Write(p) }

func (c *Checksum) Hex() string {
	return hex.EncodeToString(c.h.Sum(nil))
}

func ChecksumHex(b []byte) string {
	sum := blake2b.Sum256(b)
	return hex.EncodeToString(sum[:])
}
