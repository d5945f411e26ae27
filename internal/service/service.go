// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sorteio-bolsas/inscription-service/internal/apperr"
	"github.com/sorteio-bolsas/inscription-service/internal/metrics"
	"github.com/sorteio-bolsas/inscription-service/internal/model"
	"github.com/sorteio-bolsas/inscription-service/internal/repository"
)

// Transactor runs fn inside one storage transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type PersonStore interface {
	InscriptionExistsForCPF(ctx context.Context, cpf string, drawID int64) (bool, error)
	FindPersonByCPF(ctx context.Context, cpf string) (*model.Person, error)
	CreatePerson(ctx context.Context, p *model.Person) error
}

type GeographyStore interface {
	FindStateByID(ctx context.Context, id int64) (*model.State, error)
	FindStateByUF(ctx context.Context, uf string) (*model.State, error)
	FindMunicipality(ctx context.Context, name string, stateID int64) (*model.Municipality, error)
	ListStates(ctx context.Context) ([]model.State, error)
	ListMunicipalities(ctx context.Context, stateID int64) ([]model.Municipality, error)
}

// MunicipalityCache is an optional read-through cache for municipality codes.
type MunicipalityCache interface {
	Get(ctx context.Context, stateID int64, name string) (int64, bool, error)
	Set(ctx context.Context, stateID int64, name string, code int64) error
}

type CourseStore interface {
	ListCourses(ctx context.Context, institutionID, modalityID int64) ([]model.Course, error)
}

type DrawStore interface {
	CreateDraw(ctx context.Context, d *model.Draw) error
	GetDraw(ctx context.Context, id int64) (*model.Draw, error)
	ListDraws(ctx context.Context, activeOnly bool) ([]model.Draw, error)
}

type InscriptionStore interface {
	InscriptionExists(ctx context.Context, personID string, drawID int64) (bool, error)
	CreateInscription(ctx context.Context, ins *model.Inscription) error
	GetInscription(ctx context.Context, id string) (*model.InscriptionDetail, error)
	ListInscriptions(ctx context.Context) ([]model.InscriptionDetail, error)
	DeleteInscription(ctx context.Context, id string) error
	CreateWinner(ctx context.Context, w *model.Winner) error
	GetWinnerByInscription(ctx context.Context, inscriptionID string) (*model.Winner, error)
	ListWinners(ctx context.Context) ([]model.WinnerDetail, error)
}

const (
	defaultQueryTimeout = 5 * time.Second
	defaultReadRetries  = 3
)

// base carries the call policy shared by every service.
type base struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	retries int
}

type Option func(b *base)

func WithLogger(logger *slog.Logger) Option {
	return func(b *base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(b *base) {
		b.metrics = m
	}
}

// WithQueryTimeout bounds every storage call.
func WithQueryTimeout(d time.Duration) Option {
	return func(b *base) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithReadRetries sets how many times a failed read is retried.
func WithReadRetries(n int) Option {
	return func(b *base) {
		if n >= 0 {
			b.retries = n
		}
	}
}

func newBase(opts []Option) base {
	b := base{
		logger:  slog.New(slog.DiscardHandler),
		timeout: defaultQueryTimeout,
		retries: defaultReadRetries,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

type inTxKey struct{}

func withinTx(ctx context.Context) bool {
	v, _ := ctx.Value(inTxKey{}).(bool)
	return v
}

// call runs one storage operation under the per-call timeout. A deadline
// expiry is reported as apperr.KindTimeout; other errors pass through so the
// caller can match repository sentinels.
func (b *base) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	b.metrics.ObserveStorage(op, start)
	return asTimeout(ctx, err)
}

// write runs a storage mutation. Writes are never retried: a retry after an
// ambiguous failure could duplicate the side effect.
func (b *base) write(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return b.call(ctx, op, fn)
}

// read runs a storage query, retrying transient failures with exponential
// backoff. Not-found, timeouts and reads inside a transaction fail at once.
func (b *base) read(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if b.retries == 0 || withinTx(ctx) {
		return b.call(ctx, op, fn)
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := b.call(ctx, op, fn)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrNotFound),
			apperr.Is(err, apperr.KindTimeout),
			ctx.Err() != nil:
			return backoff.Permanent(err)
		}
		b.logger.Warn("storage read failed, retrying", "op", op, "attempt", attempt, "error", err)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 50 * time.Millisecond
	policy.MaxInterval = 500 * time.Millisecond
	return backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(b.retries)), ctx))
}

// inTx runs fn in one transaction bounded by the per-call timeout.
func (b *base) inTx(ctx context.Context, tx Transactor, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	start := time.Now()
	err := tx.InTx(ctx, func(ctx context.Context) error {
		return fn(context.WithValue(ctx, inTxKey{}, true))
	})
	b.metrics.ObserveStorage(op, start)
	return asTimeout(ctx, err)
}

func asTimeout(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperr.Wrap(err, apperr.KindTimeout, "storage call timed out")
	}
	return err
}

// storageFailure leaves typed errors alone and classifies the rest as
// storage failures.
func storageFailure(err error, msg string) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Wrap(err, apperr.KindStorage, msg)
}

// reject records a failed operation and logs storage-side failures.
func (b *base) reject(ctx context.Context, op string, err error) {
	kind := apperr.KindOf(err)
	b.metrics.IncRejection(op, string(kind))
	if kind == apperr.KindStorage || kind == apperr.KindTimeout {
		b.logger.ErrorContext(ctx, "storage failure", "op", op, "kind", kind, "error", err)
	}
}
