package core

import "testing"

func TestRoundCents(t *testing.T) {
	cases := []struct {
		in  float64
		out int64
	}{
		{0, 0},
		{99.4, 99},
		{99.5, 100}, // half rounds away from zero
		{99.6, 100},
		{-99.4, -99},
		{-99.5, -100},
		{-99.6, -100},
		{3333.3333, 3333},
		{6666.6666, 6667},
	}
	for _, tc := range cases {
		if got := RoundCents(tc.in); got != tc.out {
			t.Errorf("RoundCents(%v) = %d, want %d", tc.in, got, tc.out)
		}
	}
}

func TestMoneyFormat(t *testing.T) {
	cases := []struct {
		cents int64
		want  string
	}{
		{6000, "60.00"},
		{1, "0.01"},
		{123456, "1234.56"},
		{-250, "-2.50"},
	}
	for _, tc := range cases {
		if got := (Money{Cents: tc.cents}).Format(); got != tc.want {
			t.Errorf("Format(%d) = %q, want %q", tc.cents, got, tc.want)
		}
	}
}

func TestPeriodAddMonths(t *testing.T) {
	cases := []struct {
		start Period
		n     int
		want  Period
	}{
		{Period{1, 2026}, -1, Period{12, 2025}},
		{Period{12, 2025}, 1, Period{1, 2026}},
		{Period{6, 2026}, -12, Period{6, 2025}},
		{Period{3, 2026}, 0, Period{3, 2026}},
	}
	for _, tc := range cases {
		if got := tc.start.AddMonths(tc.n); got != tc.want {
			t.Errorf("%v.AddMonths(%d) = %v, want %v", tc.start, tc.n, got, tc.want)
		}
	}
}
