// Package setdiff implements set reconciliation sketches: two parties
// holding large, mostly-overlapping sets discover their symmetric difference
// while exchanging payloads far smaller than either set.
//
// Two cooperating structures do the work. A Filter (Invertible Bloom Filter)
// encodes a set into a fixed number of buckets and supports subtraction
// against a peer's same-shape filter; the subtracted filter is decoded by
// peeling into the elements each side holds exclusively. An Estimator
// (strata estimator) is exchanged first to estimate how large the difference
// is, so both parties can size the filter before paying for it.
//
// # Basic Usage
//
// Each party builds an estimator over its set and exchanges it:
//
//	est, _ := setdiff.NewEstimator[setdiff.Key]()
//	for _, k := range localKeys {
//	    est.Encode(k)
//	}
//	payload, _ := est.MarshalBinary()
//	// send payload; receive peerPayload
//	peer, err := setdiff.DecodeEstimator[setdiff.Key](peerPayload)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	capacity, err := est.EstimateDiff(peer)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Then builds, exchanges, subtracts, and decodes a filter of that capacity:
//
//	local, _ := setdiff.New[setdiff.Key](capacity)
//	for _, k := range localKeys {
//	    local.Encode(k)
//	}
//	// exchange MarshalBinary payloads as above, yielding remote
//	delta, err := local.Subtract(remote)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	diff, err := delta.Decode()
//	if errors.Is(err, seterrors.ErrInsufficientCapacity) {
//	    // difference exceeded the estimate: double capacity and re-exchange
//	}
//	// diff.OnlyLocal: present here, missing at the peer
//	// diff.OnlyRemote: present at the peer, missing here
//
// Decoding success is probabilistic in the filter's sizing; the estimator's
// hint includes headroom, and the recovery path for an undersized filter is
// always to re-exchange a larger one. Moving the serialized payloads between
// parties (sockets, files, RPC) is the caller's business.
//
// Elements are values of any type implementing Symbol; Key is the supplied
// 128-bit implementation, with KeyFromBytes deriving keys from arbitrary
// data. Custom payload types can be reconciled directly by implementing the
// same contract.
//
// # Package Structure
//
//   - Public API: filter.go (New, Encode, Subtract, Decode), strata.go
//     (NewEstimator, Encode, EstimateDiff), parallel.go (BuildFilter,
//     BuildEstimator)
//   - Element contract: symbol.go (Symbol), key.go (Key, KeyFromBytes)
//   - Configuration: options.go (Option, With* functions)
//   - Serialization: codec.go (MarshalBinary, DecodeFilter, DecodeEstimator)
//   - Bucket arithmetic: bucket.go
//   - Errors: errors/ (sentinel values, one package so errors.Is works
//     everywhere)
package setdiff
