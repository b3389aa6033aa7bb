package logging

import "testing"

func TestNewProgressSamplerDefaults(t *testing.T) {
	for _, size := range []float64{0, -1} {
		if s := NewProgressSampler(size); s.bucketSize != 10 || s.lastBucket != -1 {
			t.Fatalf("NewProgressSampler(%v) = %+v", size, s)
		}
	}
	if s := NewProgressSampler(25); s.bucketSize != 25 {
		t.Fatalf("bucketSize = %v, want 25", s.bucketSize)
	}
}

func TestProgressSamplerNilAlwaysLogs(t *testing.T) {
	var s *ProgressSampler
	if !s.ShouldLog(50) {
		t.Fatal("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(10)
	steps := []struct {
		percent float64
		want    bool
	}{
		{0, true},
		{3, false},
		{10, true},
		{19.9, false},
		{45, true},
		{40, false},
		{100, true},
		{120, false},
		{-1, false},
	}
	for _, step := range steps {
		if got := s.ShouldLog(step.percent); got != step.want {
			t.Fatalf("ShouldLog(%v) = %v, want %v", step.percent, got, step.want)
		}
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(10)
	s.ShouldLog(50)
	s.Reset()
	if s.lastBucket != -1 {
		t.Fatalf("lastBucket = %d, want -1 after reset", s.lastBucket)
	}
	if !s.ShouldLog(50) {
		t.Fatal("should log after reset")
	}
}
