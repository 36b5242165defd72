package sim

// Stream identifiers keep the per-run random streams for the player
// car and the competitor field disjoint.
const (
	playerStream     = 0x706c6179
	competitorStream = 0x636f6d70
)

// runSeed derives a deterministic child seed for one run index and
// stream. Runs never share a generator, so the ensemble is
// reproducible whether runs execute sequentially or in parallel.
func runSeed(base int64, run int, stream int64) int64 {
	x := uint64(base)
	x ^= (uint64(run) + 1) * 0x9E3779B97F4A7C15
	x ^= uint64(stream) * 0xBF58476D1CE4E5B9
	// splitmix64 finalizer
	x ^= x >> 30
	x *= 0xBF58476D1CE4E5B9
	x ^= x >> 27
	x *= 0x94D049BB133111EB
	x ^= x >> 31
	return int64(x)
}
