// Bench measures setdiff reconciliation behavior: encode throughput, wire
// payload sizes, estimator accuracy, and decode success rate as a function of
// capacity headroom.
//
// Usage:
//
//	go run ./cmd/bench -shared 1000000 -diff 1000 -trials 50
//
// Flags:
//
//	-shared    Number of elements both parties hold (default: 1,000,000)
//	-diff      True symmetric difference size, split evenly (default: 1,000)
//	-hashes    Bucket indices per element (default: 3)
//	-trials    Decode trials per headroom step (default: 50)
//	-workers   Parallel workers for sketch building (default: 1)
//	-seed      Routing seed shared by both parties (default: 42)
package main

import (
	"context"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"syscall"
	"time"

	"github.com/spaolacci/murmur3"

	"github.com/tamirms/setdiff"
	seterrors "github.com/tamirms/setdiff/errors"
)

// getMaxRSS returns the maximum resident set size in bytes.
// Uses getrusage(RUSAGE_SELF) which tracks peak RSS since process start.
func getMaxRSS() uint64 {
	var rusage syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &rusage); err != nil {
		return 0
	}
	// On macOS, MaxRss is in bytes. On Linux, it's in kilobytes.
	maxRSS := uint64(rusage.Maxrss)
	if runtime.GOOS == "linux" {
		maxRSS *= 1024 // Convert KB to bytes on Linux
	}
	return maxRSS
}

// keyStream deterministically generates distinct keys by hashing a counter
// with murmur3-128. A fixed stream makes runs comparable across flags.
type keyStream struct {
	counter uint64
	buf     [8]byte
}

func (s *keyStream) next() setdiff.Key {
	s.counter++
	binary.LittleEndian.PutUint64(s.buf[:], s.counter)
	lo, hi := murmur3.Sum128(s.buf[:])
	return setdiff.KeyFromUint64(lo, hi)
}

func (s *keyStream) take(n int) []setdiff.Key {
	keys := make([]setdiff.Key, n)
	for i := range keys {
		keys[i] = s.next()
	}
	return keys
}

func main() {
	sharedFlag := flag.Int("shared", 1_000_000, "number of elements both parties hold")
	diffFlag := flag.Int("diff", 1_000, "true symmetric difference size")
	hashesFlag := flag.Int("hashes", 3, "bucket indices per element")
	trialsFlag := flag.Int("trials", 50, "decode trials per headroom step")
	workersFlag := flag.Int("workers", 1, "parallel workers for sketch building")
	seedFlag := flag.Uint64("seed", 42, "routing seed shared by both parties")
	flag.Parse()

	shared := *sharedFlag
	diff := *diffFlag
	if diff < 2 {
		fmt.Fprintln(os.Stderr, "need -diff >= 2")
		os.Exit(1)
	}

	ctx := context.Background()
	opts := []setdiff.Option{
		setdiff.WithHashCount(*hashesFlag),
		setdiff.WithSeed(*seedFlag),
		setdiff.WithWorkers(*workersFlag),
	}

	fmt.Println("Generating keys...")
	stream := &keyStream{}
	common := stream.take(shared)
	localOnly := stream.take(diff / 2)
	remoteOnly := stream.take(diff - diff/2)
	localKeys := append(append([]setdiff.Key{}, common...), localOnly...)
	remoteKeys := append(append([]setdiff.Key{}, common...), remoteOnly...)

	fmt.Println("Building estimators...")
	estStart := time.Now()
	localEst, err := setdiff.BuildEstimator(ctx, localKeys, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build estimator: %v\n", err)
		os.Exit(1)
	}
	remoteEst, err := setdiff.BuildEstimator(ctx, remoteKeys, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build estimator: %v\n", err)
		os.Exit(1)
	}
	estBuild := time.Since(estStart)

	hint, err := localEst.EstimateDiff(remoteEst)
	if err != nil {
		fmt.Fprintf(os.Stderr, "estimate: %v\n", err)
		os.Exit(1)
	}
	estPayload, err := localEst.MarshalBinary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal estimator: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nEstimator:\n")
	fmt.Printf("  build time:     %v (%d keys/side)\n", estBuild/2, len(localKeys))
	fmt.Printf("  wire size:      %d bytes\n", len(estPayload))
	fmt.Printf("  true diff:      %d\n", diff)
	fmt.Printf("  capacity hint:  %d (%.2fx the true diff)\n", hint, float64(hint)/float64(diff))

	fmt.Println("\nBuilding filters at the hinted capacity...")
	filterStart := time.Now()
	local, err := setdiff.BuildFilter(ctx, hint, localKeys, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build filter: %v\n", err)
		os.Exit(1)
	}
	remote, err := setdiff.BuildFilter(ctx, hint, remoteKeys, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build filter: %v\n", err)
		os.Exit(1)
	}
	filterBuild := time.Since(filterStart)

	filterPayload, err := local.MarshalBinary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal filter: %v\n", err)
		os.Exit(1)
	}
	perKey := float64(len(localKeys)) / (filterBuild.Seconds() / 2) / 1e6
	fmt.Printf("  build time:     %v (%.1fM keys/s)\n", filterBuild/2, perKey)
	fmt.Printf("  wire size:      %d bytes (full set would be %d)\n",
		len(filterPayload), len(localKeys)*setdiff.KeySize)

	delta, err := local.Subtract(remote)
	if err != nil {
		fmt.Fprintf(os.Stderr, "subtract: %v\n", err)
		os.Exit(1)
	}
	decodeStart := time.Now()
	result, err := delta.Decode()
	decodeTime := time.Since(decodeStart)
	if err != nil {
		fmt.Printf("  decode:         FAILED (%v) — re-exchange with a larger filter\n", err)
	} else {
		fmt.Printf("  decode:         recovered %d local + %d remote in %v\n",
			len(result.OnlyLocal), len(result.OnlyRemote), decodeTime)
	}

	// Success rate vs headroom: rebuild the difference at decreasing
	// capacity multiples and count full decodes. Only the differing
	// elements matter to the subtracted filter, so the shared set is
	// omitted here to keep trials fast.
	fmt.Printf("\nDecode success rate over %d trials:\n", *trialsFlag)
	fmt.Println("  headroom  capacity  success")
	for _, headroom := range []float64{1.2, 1.4, 1.6, 2.0, 3.0} {
		capacity := int(float64(diff) * headroom)
		successes := 0
		for trial := range *trialsFlag {
			trialOpts := []setdiff.Option{
				setdiff.WithHashCount(*hashesFlag),
				setdiff.WithSeed(*seedFlag + uint64(trial) + 1),
			}
			l, err := setdiff.BuildFilter(ctx, capacity, localOnly, trialOpts...)
			if err != nil {
				fmt.Fprintf(os.Stderr, "build trial filter: %v\n", err)
				os.Exit(1)
			}
			r, err := setdiff.BuildFilter(ctx, capacity, remoteOnly, trialOpts...)
			if err != nil {
				fmt.Fprintf(os.Stderr, "build trial filter: %v\n", err)
				os.Exit(1)
			}
			d, err := l.Subtract(r)
			if err != nil {
				fmt.Fprintf(os.Stderr, "subtract: %v\n", err)
				os.Exit(1)
			}
			got, err := d.Decode()
			if err == nil && got.Count() == diff {
				successes++
			} else if err != nil && !errors.Is(err, seterrors.ErrInsufficientCapacity) {
				fmt.Fprintf(os.Stderr, "decode: %v\n", err)
				os.Exit(1)
			}
		}
		fmt.Printf("  %7.1fx  %8d  %3d/%d\n", headroom, capacity, successes, *trialsFlag)
	}

	fmt.Printf("\nPeak RSS: %.1f MB\n", float64(getMaxRSS())/(1<<20))
}
