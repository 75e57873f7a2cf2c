package coordinator

import (
	"context"
	"errors"

	"foodbridge-backend/internal/domain"
	"foodbridge-backend/internal/infrastructure/locking"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	tracerName         = "foodbridge-backend/coordinator"
	defaultMaxAttempts = 3
)

// Coordinator serializes ledger mutations per listing group.
// The critical section covers the availability check, the ledger write and any listing
// split as one unit; audit and notification I/O happen after it returns.
type Coordinator struct {
	db          *gorm.DB
	locker      locking.Locker
	maxAttempts int
	tracer      trace.Tracer
}

type Option func(*Coordinator)

// WithMaxAttempts sets how many times RetryOnConflict runs an operation.
func WithMaxAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Coordinator) {
		if tp != nil {
			c.tracer = tp.Tracer(tracerName)
		}
	}
}

func New(db *gorm.DB, locker locking.Locker, opts ...Option) *Coordinator {
	c := &Coordinator{
		db:          db,
		locker:      locker,
		maxAttempts: defaultMaxAttempts,
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LockKey is the locker key for a group.
func LockKey(groupID uuid.UUID) string {
	return "listing_group:" + groupID.String()
}

// WithGroup takes the group's lock, opens a transaction, loads the group row FOR UPDATE
// and runs fn. fn's error rolls the transaction back.
func (c *Coordinator) WithGroup(ctx context.Context, groupID uuid.UUID, fn func(tx *gorm.DB, group *domain.ListingGroup) error) error {
	ctx, span := c.tracer.Start(ctx, "coordinator.with_group",
		trace.WithAttributes(attribute.String("listing_group.id", groupID.String())))
	defer span.End()

	unlock, err := c.locker.Lock(ctx, LockKey(groupID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock not acquired")
		return domain.Internal("acquire group lock", err)
	}
	defer unlock()

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group domain.ListingGroup
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("group_id = ?", groupID).
			First(&group).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrGroupNotFound
			}
			return domain.Internal("load group", err)
		}
		return fn(tx, &group)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.KindOf(err).String())
		return err
	}
	span.SetStatus(codes.Ok, "committed")
	return nil
}

// RetryOnConflict runs op again while it fails with ErrConcurrencyConflict.
// op must be a whole critical section so a retry never observes a partial write.
func (c *Coordinator) RetryOnConflict(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err = op(ctx)
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		trace.SpanFromContext(ctx).AddEvent("concurrency_conflict_retry",
			trace.WithAttributes(attribute.Int("attempt", attempt)))
	}
	return err
}
