package setdiff

import (
	"encoding/binary"
	"fmt"

	seterrors "github.com/tamirms/setdiff/errors"
)

const (
	// filterMagic marks a serialized Filter ("SDIF" little-endian).
	filterMagic = uint32(0x46494453)

	// estimatorMagic marks a serialized Estimator ("SDSE" little-endian).
	estimatorMagic = uint32(0x45534453)

	// codecVersion is the current wire format version.
	codecVersion = uint16(0x0001)

	// filterHeaderSize is the exact size of the serialized filter header.
	filterHeaderSize = 24

	// estimatorHeaderSize is the exact size of the serialized estimator header.
	estimatorHeaderSize = 16

	// bucketOverhead is the serialized size of a bucket beyond its key sum
	// (count int64 + hashSum uint64).
	bucketOverhead = 16
)

// Filter wire layout. All integers little-endian.
//
//	Offset  Size  Field
//	0       4     Magic       0x46494453 ("SDIF")
//	4       2     Version     0x0001
//	6       2     HashCount   uint16
//	8       4     Capacity    uint32
//	12      8     Seed        uint64
//	20      4     SymbolSize  uint32 (serialized symbol width in bytes)
//	24      —     Buckets     Capacity × (Count int64, KeySum SymbolSize bytes, HashSum uint64)
//
// The payload length is exact: header plus Capacity buckets, nothing after.

// MarshalBinary serializes the filter for exchange with the peer. The
// resulting payload is decoded with DecodeFilter.
func (f *Filter[T]) MarshalBinary() ([]byte, error) {
	var zero T
	symbolSize := zero.Size()

	buf := make([]byte, 0, filterHeaderSize+len(f.buckets)*(bucketOverhead+symbolSize))
	buf = binary.LittleEndian.AppendUint32(buf, filterMagic)
	buf = binary.LittleEndian.AppendUint16(buf, codecVersion)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(f.hashCount))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(f.buckets)))
	buf = binary.LittleEndian.AppendUint64(buf, f.seed)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(symbolSize))
	for i := range f.buckets {
		b := &f.buckets[i]
		buf = binary.LittleEndian.AppendUint64(buf, uint64(b.count))
		buf = b.keySum.AppendBinary(buf)
		buf = binary.LittleEndian.AppendUint64(buf, b.hashSum)
	}
	return buf, nil
}

// DecodeFilter parses a payload produced by Filter.MarshalBinary. The shape
// fields are validated before any bucket is read; a structurally invalid
// payload fails with an error satisfying errors.Is(err, ErrMalformedInput)
// and never panics, whatever the input.
func DecodeFilter[T Symbol[T]](data []byte) (*Filter[T], error) {
	if len(data) < filterHeaderSize {
		return nil, seterrors.ErrTruncatedInput
	}
	if binary.LittleEndian.Uint32(data[0:4]) != filterMagic {
		return nil, seterrors.ErrInvalidMagic
	}
	if binary.LittleEndian.Uint16(data[4:6]) != codecVersion {
		return nil, seterrors.ErrInvalidVersion
	}
	hashCount := int(binary.LittleEndian.Uint16(data[6:8]))
	capacity := int(binary.LittleEndian.Uint32(data[8:12]))
	seed := binary.LittleEndian.Uint64(data[12:20])
	symbolSize := int(binary.LittleEndian.Uint32(data[20:24]))

	var zero T
	if symbolSize != zero.Size() {
		return nil, seterrors.ErrSymbolSize
	}
	if hashCount < 1 || hashCount > maxHashCount {
		return nil, fmt.Errorf("%w: %w (%d)", seterrors.ErrMalformedInput, seterrors.ErrInvalidHashCount, hashCount)
	}
	if capacity < hashCount {
		return nil, fmt.Errorf("%w: %w (%d)", seterrors.ErrMalformedInput, seterrors.ErrInvalidCapacity, capacity)
	}

	// Length is validated against the declared capacity before any bucket
	// allocation, so a hostile header cannot force a huge allocation.
	bucketSize := bucketOverhead + symbolSize
	want := filterHeaderSize + capacity*bucketSize
	if len(data) < want {
		return nil, seterrors.ErrTruncatedInput
	}
	if len(data) > want {
		return nil, fmt.Errorf("%w: %d trailing bytes", seterrors.ErrMalformedInput, len(data)-want)
	}

	f, err := newFilter[T](capacity, hashCount, seed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", seterrors.ErrMalformedInput, err)
	}

	body := data[filterHeaderSize:]
	for i := 0; i < capacity; i++ {
		rec := body[i*bucketSize:]
		keySum, err := zero.DecodeBinary(rec[8 : 8+symbolSize])
		if err != nil {
			return nil, fmt.Errorf("%w: bucket %d: %w", seterrors.ErrMalformedInput, i, err)
		}
		f.buckets[i] = bucket[T]{
			count:   int64(binary.LittleEndian.Uint64(rec[0:8])),
			keySum:  keySum,
			hashSum: binary.LittleEndian.Uint64(rec[8+symbolSize : 8+symbolSize+8]),
		}
	}
	return f, nil
}

// Estimator wire layout. All integers little-endian.
//
//	Offset  Size  Field
//	0       4     Magic        0x45534453 ("SDSE")
//	4       2     Version      0x0001
//	6       2     StrataCount  uint16
//	8       8     Seed         uint64
//	16      —     Strata       StrataCount × (Length uint32, Filter payload)
//
// Each stratum is a full Filter payload, length-prefixed. All strata must
// share one shape, and their seed must match the estimator header's.

// MarshalBinary serializes the estimator for exchange with the peer. The
// resulting payload is decoded with DecodeEstimator.
func (e *Estimator[T]) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, estimatorHeaderSize)
	buf = binary.LittleEndian.AppendUint32(buf, estimatorMagic)
	buf = binary.LittleEndian.AppendUint16(buf, codecVersion)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.strata)))
	buf = binary.LittleEndian.AppendUint64(buf, e.seed)
	for _, stratum := range e.strata {
		payload, err := stratum.MarshalBinary()
		if err != nil {
			return nil, err
		}
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
		buf = append(buf, payload...)
	}
	return buf, nil
}

// DecodeEstimator parses a payload produced by Estimator.MarshalBinary,
// re-validating the header, every embedded filter, and the cross-strata
// shape invariants. Structurally invalid payloads fail with an error
// satisfying errors.Is(err, ErrMalformedInput).
func DecodeEstimator[T Symbol[T]](data []byte) (*Estimator[T], error) {
	if len(data) < estimatorHeaderSize {
		return nil, seterrors.ErrTruncatedInput
	}
	if binary.LittleEndian.Uint32(data[0:4]) != estimatorMagic {
		return nil, seterrors.ErrInvalidMagic
	}
	if binary.LittleEndian.Uint16(data[4:6]) != codecVersion {
		return nil, seterrors.ErrInvalidVersion
	}
	strataCount := int(binary.LittleEndian.Uint16(data[6:8]))
	seed := binary.LittleEndian.Uint64(data[8:16])
	if strataCount < 1 || strataCount > maxStrataCount {
		return nil, fmt.Errorf("%w: strata count %d", seterrors.ErrMalformedInput, strataCount)
	}

	rest := data[estimatorHeaderSize:]
	strata := make([]*Filter[T], strataCount)
	for i := range strata {
		if len(rest) < 4 {
			return nil, seterrors.ErrTruncatedInput
		}
		length := int(binary.LittleEndian.Uint32(rest[0:4]))
		rest = rest[4:]
		if len(rest) < length {
			return nil, seterrors.ErrTruncatedInput
		}
		f, err := DecodeFilter[T](rest[:length])
		if err != nil {
			return nil, fmt.Errorf("stratum %d: %w", i, err)
		}
		if f.seed != seed {
			return nil, fmt.Errorf("%w: stratum %d seed disagrees with header", seterrors.ErrMalformedInput, i)
		}
		if i > 0 && !f.SameShape(strata[0]) {
			return nil, fmt.Errorf("%w: stratum %d shape disagrees with stratum 0", seterrors.ErrMalformedInput, i)
		}
		strata[i] = f
		rest = rest[length:]
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", seterrors.ErrMalformedInput, len(rest))
	}
	return &Estimator[T]{strata: strata, seed: seed}, nil
}
