package orders

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	orderNumberPrefix  = "ORD"
	orderSequenceName  = "orders"
	orderNumberDateFmt = "20060102"
)

// NumberGenerator yields candidate order numbers of the form ORD-YYYYMMDD-<suffix>.
// Uniqueness is enforced by the database; callers retry on collision.
type NumberGenerator interface {
	Next(ctx context.Context, now time.Time) (string, error)
}

type dailySequencer interface {
	NextDailySequence(ctx context.Context, name string, day time.Time) (int64, error)
}

// SequenceGenerator numbers orders from a per-day Redis counter.
type SequenceGenerator struct {
	seq dailySequencer
}

// NewSequenceGenerator builds a generator over the Redis daily sequence.
func NewSequenceGenerator(seq dailySequencer) *SequenceGenerator {
	return &SequenceGenerator{seq: seq}
}

func (g *SequenceGenerator) Next(ctx context.Context, now time.Time) (string, error) {
	n, err := g.seq.NextDailySequence(ctx, orderSequenceName, now)
	if err != nil {
		return "", fmt.Errorf("next order sequence: %w", err)
	}
	return formatOrderNumber(now, fmt.Sprintf("%06d", n)), nil
}

// ULIDGenerator derives the suffix from the random half of a ULID.
type ULIDGenerator struct{}

func (ULIDGenerator) Next(_ context.Context, now time.Time) (string, error) {
	id, err := ulid.New(ulid.Timestamp(now), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate ulid: %w", err)
	}
	return formatOrderNumber(now, id.String()[16:]), nil
}

// FallbackGenerator tries primary first and falls back when it errors.
type FallbackGenerator struct {
	Primary  NumberGenerator
	Fallback NumberGenerator
}

func (g FallbackGenerator) Next(ctx context.Context, now time.Time) (string, error) {
	if g.Primary != nil {
		if number, err := g.Primary.Next(ctx, now); err == nil {
			return number, nil
		}
	}
	return g.Fallback.Next(ctx, now)
}

func formatOrderNumber(now time.Time, suffix string) string {
	return fmt.Sprintf("%s-%s-%s", orderNumberPrefix, now.UTC().Format(orderNumberDateFmt), suffix)
}
