package setdiff

// Symbol is the capability contract a type must satisfy to be sketched.
// Key implements it for 128-bit identifiers; richer payloads can be sketched
// by implementing the same five capabilities.
//
// The contract is load-bearing in three places:
//
//   - XOR drives bucket accumulation, subtraction, and peeling. It must be
//     associative and self-inverse (combining the same value twice cancels
//     exactly), and the zero value of T must be its identity.
//   - Fingerprint and Hash must be deterministic across processes: two
//     parties route an element to identical buckets purely because they use
//     the same seeds, and decode validates purity by recomputing
//     fingerprints from scratch.
//   - Serialization must be byte-exact and fixed-width so that wire payloads
//     can be validated structurally before use.
type Symbol[T any] interface {
	comparable

	// XOR returns the combination of the receiver and t2.
	// It must not modify the receiver.
	XOR(t2 T) T

	// Fingerprint returns a 64-bit checksum of the receiver. It must be
	// independent of Hash; decode relies on that independence to verify a
	// bucket holds exactly one symbol.
	Fingerprint() uint64

	// Hash returns a keyed routing hash of the receiver. Equal (value, seed)
	// pairs must produce equal results on every platform.
	Hash(seed uint64) uint64

	// Size returns the serialized width in bytes. It must be a constant for
	// the type and callable on the zero value.
	Size() int

	// AppendBinary appends the receiver's Size-byte encoding to dst and
	// returns the extended slice.
	AppendBinary(dst []byte) []byte

	// DecodeBinary parses the first Size bytes of src into a new value.
	// It is callable on the zero value and must not modify the receiver.
	DecodeBinary(src []byte) (T, error)
}
