package synthesis

import (
	"hash/fnv"
	"math/rand/v2"
	"time"
)

// DaySeed derives the generation seed of a calendar day. The same date and
// base seed always give the same value.
func DaySeed(date time.Time, base uint64) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(date.Format("2006-01-02")))
	return mix64(h.Sum64() ^ base)
}

// mix64 is the splitmix64 finaliser.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// stream returns an independent generator for one consumer of a day seed, so
// adding a consumer never shifts the numbers another one draws.
func stream(seed uint64, label string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(label))
	return rand.New(rand.NewPCG(seed, mix64(h.Sum64())))
}

// jitter draws uniformly from [-amplitude, amplitude].
func jitter(r *rand.Rand, amplitude float64) float64 {
	return (r.Float64()*2 - 1) * amplitude
}
