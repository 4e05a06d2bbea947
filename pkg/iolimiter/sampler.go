package iolimiter

import (
	"context"
	"log/slog"
	"time"
)

// windowSize is the number of recent throughput samples averaged to decide
// whether to raise or lower the limit.
const windowSize = 5

// CounterReader returns a monotonically increasing count of bytes read and
// written on the working volume since some fixed epoch (e.g. system boot).
// The sampler differences successive reads to obtain per-interval
// throughput.
type CounterReader interface {
	TotalBytes() (uint64, error)
}

// Thresholds bounds the throughput bands that drive limit adjustment, in
// bytes per sampling interval.
type Thresholds struct {
	Low  uint64
	High uint64
}

// Sampler periodically reads disk throughput and adjusts a Gate's limit.
type Sampler struct {
	interval   time.Duration
	reader     CounterReader
	thresholds Thresholds
	gate       *Gate

	window   []uint64
	prevByte uint64
	haveBase bool
}

// NewSampler returns a Sampler that reads from reader every interval and
// adjusts gate according to thresholds.
func NewSampler(interval time.Duration, reader CounterReader, thresholds Thresholds, gate *Gate) *Sampler {
	return &Sampler{
		interval:   interval,
		reader:     reader,
		thresholds: thresholds,
		gate:       gate,
		window:     make([]uint64, 0, windowSize),
	}
}

// Run blocks, sampling on the configured interval until ctx is canceled.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleOnce()
		}
	}
}

// sampleOnce takes one reading, updates the moving average, and adjusts the
// gate's limit accordingly. The first sample establishes a baseline and
// never adjusts the limit, since no interval has elapsed yet to measure a
// delta against.
func (s *Sampler) sampleOnce() {
	total, err := s.reader.TotalBytes()
	if err != nil {
		slog.Debug("iolimiter: cannot read IO counters", "error", err)
		return
	}

	if !s.haveBase {
		s.prevByte = total
		s.haveBase = true
		return
	}

	delta := total - s.prevByte
	s.prevByte = total

	s.window = append(s.window, delta)
	if len(s.window) > windowSize {
		s.window = s.window[len(s.window)-windowSize:]
	}

	avg := movingAverage(s.window)
	s.adjust(avg)
}

func (s *Sampler) adjust(avg uint64) {
	limit := s.gate.Limit()

	switch {
	case avg < s.thresholds.Low:
		s.gate.SetLimit(limit + 1)
	case avg >= s.thresholds.High:
		s.gate.SetLimit(limit - 1)
	}
}

func movingAverage(samples []uint64) uint64 {
	if len(samples) == 0 {
		return 0
	}

	var sum uint64
	for _, v := range samples {
		sum += v
	}

	return sum / uint64(len(samples))
}
