// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package thaw

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"
)

// Pacer bounds the rate at which restores are requested.
type Pacer interface {
	// Wait blocks until an object of size bytes may be restored.
	Wait(ctx context.Context, size int64) error
}

// Pacing policies.
const (
	PacingRate  = "rate"
	PacingSleep = "sleep"
	PacingNone  = "none"
)

// NoPacing never waits.
type NoPacing struct{}

// Wait implements Pacer.
func (NoPacing) Wait(ctx context.Context, size int64) error { return ctx.Err() }

// SleepPacer sleeps in proportion to every object's size, so that the
// restored bytes per hour never exceed BytesPerHour on average.
type SleepPacer struct {
	BytesPerHour uint64

	sleep func(ctx context.Context, d time.Duration) error
}

// NewSleepPacer returns a pacer that sleeps size/bytesPerHour hours per object.
func NewSleepPacer(bytesPerHour uint64) *SleepPacer {
	return &SleepPacer{BytesPerHour: bytesPerHour, sleep: sleep}
}

// Delay returns how long Wait sleeps before an object of size bytes.
func (pacer *SleepPacer) Delay(size int64) time.Duration {
	if pacer.BytesPerHour == 0 || size <= 0 {
		return 0
	}
	hours := float64(size) / float64(pacer.BytesPerHour)
	if hours*float64(time.Hour) >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(hours * float64(time.Hour))
}

// Wait implements Pacer.
func (pacer *SleepPacer) Wait(ctx context.Context, size int64) error {
	return pacer.sleep(ctx, pacer.Delay(size))
}

// RatePacer is a token bucket where every token is one byte.
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer returns a pacer that allows bytesPerHour with a burst of one
// minute worth of bytes.
func NewRatePacer(bytesPerHour uint64) *RatePacer {
	perSecond := float64(bytesPerHour) / 3600
	burst := perSecond * 60
	if burst < 1 {
		burst = 1
	}
	if burst > math.MaxInt32 {
		burst = math.MaxInt32
	}
	return &RatePacer{limiter: rate.NewLimiter(rate.Limit(perSecond), int(burst))}
}

// Wait implements Pacer. Objects larger than the burst are paid for in chunks.
func (pacer *RatePacer) Wait(ctx context.Context, size int64) error {
	burst := int64(pacer.limiter.Burst())
	for size > 0 {
		n := size
		if n > burst {
			n = burst
		}
		if err := pacer.limiter.WaitN(ctx, int(n)); err != nil {
			return err
		}
		size -= n
	}
	return ctx.Err()
}

// NewPacer creates the pacer named by policy for a humanized rate such as
// "1 GB" per hour. A zero rate disables pacing.
func NewPacer(policy, bytesPerHour string) (Pacer, error) {
	perHour, err := humanize.ParseBytes(strings.TrimSpace(bytesPerHour))
	if err != nil {
		return nil, Error.New("invalid rate %q: %v", bytesPerHour, err)
	}

	switch strings.ToLower(policy) {
	case PacingNone:
		return NoPacing{}, nil
	case PacingSleep:
		if perHour == 0 {
			return NoPacing{}, nil
		}
		return NewSleepPacer(perHour), nil
	case PacingRate, "":
		if perHour == 0 {
			return NoPacing{}, nil
		}
		return NewRatePacer(perHour), nil
	default:
		return nil, Error.New("unknown pacing %q", policy)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
