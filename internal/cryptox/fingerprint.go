// Package cryptox derives content fingerprints used as cache keys.
package cryptox

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint hashes the given parts with BLAKE2b-256 and returns the hex
// digest. Each part is length-prefixed, so ("ab","c") and ("a","bc") differ.
func Fingerprint(parts ...[]byte) string {
	h, _ := blake2b.New256(nil)

	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write(p)
	}

	return hex.EncodeToString(h.Sum(nil))
}
