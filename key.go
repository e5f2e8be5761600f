package setdiff

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"
	"github.com/zeebo/xxh3"

	seterrors "github.com/tamirms/setdiff/errors"
)

// KeySize is the serialized width of a Key in bytes.
const KeySize = 16

// seedMixer is the WyHash wyp1 constant. Being odd, multiplication by it is a
// bijection on uint64, so deriving the second siphash key word as seed*mixer
// preserves the seed's entropy while keeping the two words distinct.
const seedMixer = 0x517cc1b727220a95

// Key is the default Symbol implementation: an opaque 128-bit identifier.
// Equality is bitwise. Keys are expected to be uniformly distributed; derive
// them from non-uniform data with KeyFromBytes.
type Key [KeySize]byte

// KeyFromBytes derives a Key from arbitrary bytes by applying xxHash3-128.
//
// Use it when identifiers are not already uniformly random 128-bit values
// (strings, URLs, sequential integers, JSON documents). Both parties must
// derive keys the same way or their sketches will not cancel.
func KeyFromBytes(data []byte) Key {
	h := xxh3.Hash128(data)
	var k Key
	binary.LittleEndian.PutUint64(k[0:8], h.Lo)
	binary.LittleEndian.PutUint64(k[8:16], h.Hi)
	return k
}

// KeyFromUint64 builds a Key from two 64-bit halves, little-endian. Intended
// for identifiers that are already uniformly distributed.
func KeyFromUint64(lo, hi uint64) Key {
	var k Key
	binary.LittleEndian.PutUint64(k[0:8], lo)
	binary.LittleEndian.PutUint64(k[8:16], hi)
	return k
}

// XOR returns the bitwise XOR of k and o.
func (k Key) XOR(o Key) Key {
	var out Key
	for i := range k {
		out[i] = k[i] ^ o[i]
	}
	return out
}

// Fingerprint returns the xxHash64 of the key bytes. Unkeyed on purpose:
// fingerprints must agree between parties without seed negotiation.
func (k Key) Fingerprint() uint64 {
	return xxhash.Sum64(k[:])
}

// Hash returns a SipHash-2-4 of the key bytes, keyed by the seed. The two
// 64-bit siphash key words are (seed, seed*seedMixer).
func (k Key) Hash(seed uint64) uint64 {
	return siphash.Hash(seed, seed*seedMixer, k[:])
}

// Size returns KeySize.
func (k Key) Size() int {
	return KeySize
}

// AppendBinary appends the key's 16 bytes to dst.
func (k Key) AppendBinary(dst []byte) []byte {
	return append(dst, k[:]...)
}

// DecodeBinary parses the first KeySize bytes of src into a new Key.
func (k Key) DecodeBinary(src []byte) (Key, error) {
	if len(src) < KeySize {
		return Key{}, seterrors.ErrSymbolSize
	}
	var out Key
	copy(out[:], src[:KeySize])
	return out, nil
}

// String returns the key as lowercase hex.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}
