package setdiff

const (
	// defaultHashCount is the number of bucket indices derived per element.
	// Three is the conventional choice for peeling-based filters.
	defaultHashCount = 3

	// maxHashCount bounds the index family. More than 8 indices per element
	// only raises density without improving the peeling threshold.
	maxHashCount = 8

	// defaultSeed is an arbitrary non-zero seed; override via WithSeed.
	// Both parties must use the same seed or subtraction will not cancel.
	defaultSeed = uint64(0x1234567890abcdef)

	// defaultStrataCount covers trailing-zero counts 0..31; deeper hashes
	// are clamped into the top stratum.
	defaultStrataCount = 32

	// maxStrataCount is bounded by the routing hash width.
	maxStrataCount = 64

	// defaultStratumCapacity is the per-stratum bucket count. Strata are
	// deliberately small: each one only ever needs to decode the slice of
	// the difference whose hashes have a given trailing-zero count.
	defaultStratumCapacity = 80

	// MinCapacity is the floor applied to estimator capacity hints. Raw
	// estimates can legitimately be tiny or zero; the floor keeps the
	// resulting filter shape valid and leaves headroom for estimator noise.
	MinCapacity = 16
)

// Option is a functional option for configuring filters and estimators.
type Option func(*config)

type config struct {
	hashCount       int
	seed            uint64
	strataCount     int
	stratumCapacity int
	workers         int
}

func defaultOptions() config {
	return config{
		hashCount:       defaultHashCount,
		seed:            defaultSeed,
		strataCount:     defaultStrataCount,
		stratumCapacity: defaultStratumCapacity,
		workers:         0, // single-threaded; use WithWorkers(n) to parallelize
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithHashCount sets the number of bucket indices derived per element.
func WithHashCount(n int) Option {
	return func(c *config) {
		c.hashCount = n
	}
}

// WithSeed sets the routing seed carried in the structure's shape. Two
// parties must construct their sketches with identical seeds; the seed is
// part of shape equality for exactly that reason.
func WithSeed(seed uint64) Option {
	return func(c *config) {
		c.seed = seed
	}
}

// WithStrataCount sets the number of strata in an estimator.
func WithStrataCount(n int) Option {
	return func(c *config) {
		c.strataCount = n
	}
}

// WithStratumCapacity sets the bucket count of each stratum filter.
func WithStratumCapacity(n int) Option {
	return func(c *config) {
		c.stratumCapacity = n
	}
}

// WithWorkers sets the number of parallel workers for BuildFilter and
// BuildEstimator. Values below 2 select the sequential path.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}
