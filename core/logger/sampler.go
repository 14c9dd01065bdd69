package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler lets numerator out of every denominator events through.
// The ratio is packed into one word so Allow never locks.
type ratioSampler struct {
	ratio   atomic.Uint64
	counter atomic.Uint64
}

func newRatioSampler(numerator, denominator int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(numerator, denominator)
	return s
}

// Set configures the sampling ratio. Non-positive values disable sampling.
func (s *ratioSampler) Set(numerator, denominator int) {
	if numerator <= 0 || denominator <= 0 {
		s.ratio.Store(0)
		return
	}
	numerator = min(numerator, denominator)
	s.ratio.Store(uint64(numerator)<<32 | uint64(uint32(denominator)))
	s.counter.Store(0)
}

// Allow reports whether the current event should pass sampling.
func (s *ratioSampler) Allow() bool {
	r := s.ratio.Load()
	if r == 0 {
		return true
	}
	num, den := r>>32, r&0xffffffff
	return (s.counter.Add(1)-1)%den < num
}

// parseRatioSpec accepts "1/20", "20" (one in twenty) and "5%".
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	switch {
	case spec == "":
		return 0, 0
	case strings.HasSuffix(spec, "%"):
		pct, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(spec, "%")))
		if err != nil || pct <= 0 {
			return 0, 0
		}
		return min(pct, 100), 100
	case strings.Contains(spec, "/"):
		num, den, _ := strings.Cut(spec, "/")
		n, err1 := strconv.Atoi(strings.TrimSpace(num))
		d, err2 := strconv.Atoi(strings.TrimSpace(den))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return n, d
	}
	v, err := strconv.Atoi(spec)
	if err != nil || v <= 0 {
		return 0, 0
	}
	return 1, v
}
