package logger

import "testing"

func TestParseRatioSpec(t *testing.T) {
	cases := map[string][2]int{
		"":      {0, 0},
		"1/20":  {1, 20},
		" 3/4 ": {3, 4},
		"50":    {1, 50},
		"5%":    {5, 100},
		"250%":  {100, 100},
		"0":     {0, 0},
		"x/y":   {0, 0},
		"abc":   {0, 0},
	}
	for spec, want := range cases {
		n, d := parseRatioSpec(spec)
		if n != want[0] || d != want[1] {
			t.Errorf("parseRatioSpec(%q) = %d/%d, want %d/%d", spec, n, d, want[0], want[1])
		}
	}
}

func TestRatioSamplerAllow(t *testing.T) {
	s := newRatioSampler(1, 4)
	passed := 0
	for range 40 {
		if s.Allow() {
			passed++
		}
	}
	if passed != 10 {
		t.Fatalf("1/4 sampler passed %d of 40", passed)
	}

	s.Set(0, 0)
	for range 5 {
		if !s.Allow() {
			t.Fatal("disabled sampler must allow everything")
		}
	}
}
