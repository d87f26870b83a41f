package synth

// The generator and hash below are part of the reproducibility contract:
// identical (tenant, range, seed) inputs must produce byte-identical event
// sets across runs and across implementations, so both are fixed bit-for-bit
// on 32-bit unsigned arithmetic.

// NewRand returns a mulberry32 generator. Each call yields a float in [0,1)
// and advances the 32-bit state through a multiply-xor-shift cascade.
func NewRand(seed uint32) func() float64 {
	state := seed
	return func() float64 {
		state += 0x6d2b79f5
		t := state
		t = (t ^ (t >> 15)) * (t | 1)
		t ^= t + (t^(t>>7))*(t|61)
		return float64(t^(t>>14)) / 4294967296.0
	}
}

// HashString folds character codes into a 32-bit value (h<<5 - h + c per
// character), mapping an arbitrary tenant id onto the PRNG seed space.
func HashString(s string) uint32 {
	var h uint32
	for _, c := range s {
		h = (h << 5) - h + uint32(c)
	}
	return h
}

// SeedFor combines a string identity with a numeric seed parameter.
func SeedFor(id string, seed uint32) uint32 {
	return HashString(id) + seed
}
