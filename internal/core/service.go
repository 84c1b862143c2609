package core

import (
	"context"
	"sync"
	"time"

	"hostelcore/internal/allocation"
	"hostelcore/internal/provisioning"
	"hostelcore/pkg/domain"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is assigned to generated students and to registrations
// that omit a password.
const DefaultPassword = "1234"

// Locker serialises operations that touch the same key across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type noopLocker struct{}

func (noopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

// registryLockKey is the single lock key taken by every mutating operation.
// Snapshotting stores rewrite the whole registry on commit, so finer keys
// would not isolate writers from each other.
const registryLockKey = "registry"

// Service exposes the room allocation engine as transactional operations over
// a PersistentStore.
type Service struct {
	store   domain.PersistentStore
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	clock   Clock
	locker  Locker
	shuffle allocation.Shuffler

	genMu     sync.Mutex
	generator *provisioning.Generator

	bcryptCost      int
	defaultPassword string
	studentCount    int
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the operation metrics sink.
func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the span tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder sets the audit trail sink.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.audit = recorder
		}
	}
}

// WithClock overrides the clock used for audit timestamps.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLocker installs a cross-process locker.
func WithLocker(locker Locker) Option {
	return func(s *Service) {
		if locker != nil {
			s.locker = locker
		}
	}
}

// WithShuffler overrides the room permutation used by cohort allocation.
func WithShuffler(shuffle allocation.Shuffler) Option {
	return func(s *Service) {
		if shuffle != nil {
			s.shuffle = shuffle
		}
	}
}

// WithGenerator overrides the synthetic student generator.
func WithGenerator(g *provisioning.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.generator = g
		}
	}
}

// WithBcryptCost sets the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithStudentCount sets the population GenerateStudents uses when called
// with a non-positive count.
func WithStudentCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.studentCount = n
		}
	}
}

// WithDefaultPassword overrides DefaultPassword.
func WithDefaultPassword(password string) Option {
	return func(s *Service) {
		if password != "" {
			s.defaultPassword = password
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	svc := &Service{
		store:           store,
		logger:          noopLogger{},
		metrics:         noopMetricsRecorder{},
		tracer:          noopTracer{},
		audit:           noopAuditRecorder{},
		clock:           ClockFunc(func() time.Time { return time.Now().UTC() }),
		locker:          noopLocker{},
		shuffle:         allocation.RandomShuffle,
		bcryptCost:      bcrypt.DefaultCost,
		defaultPassword: DefaultPassword,
		studentCount:    provisioning.DefaultStudentCount,
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.generator == nil {
		svc.generator = provisioning.NewGenerator(nil, svc.clock.Now)
	}
	return svc
}

// NewInMemoryService creates a service and in-memory store with the given rules engine.
// A nil engine uses NewDefaultRulesEngine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(NewMemoryStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

func (s *Service) hashPassword(password string) (string, error) {
	if password == "" {
		password = s.defaultPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// run wraps an operation with locking, tracing, metrics, audit and logging.
// fn returns the id of the primary entity it touched for the audit trail.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) (string, error)) error {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)

	var entityID string
	release, err := s.locker.Lock(ctx, registryLockKey)
	if err == nil {
		entityID, err = fn(ctx)
		release()
	}

	duration := time.Since(started)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	s.recordAudit(ctx, op, entityID, duration, err)
	switch {
	case err == nil:
		s.logger.Debug("operation completed", "operation", op, "entity_id", entityID, "duration", duration)
	case IsClientError(err):
		s.logger.Warn("operation rejected", "operation", op, "kind", ErrorKind(err), "error", err)
	default:
		s.logger.Error("operation failed", "operation", op, "kind", ErrorKind(err), "error", err)
	}
	return err
}

// transact runs fn in a store transaction inside run.
func (s *Service) transact(ctx context.Context, op string, fn func(tx domain.Transaction) (string, error)) (Result, error) {
	var res Result
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		var entityID string
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var ferr error
			entityID, ferr = fn(tx)
			return ferr
		})
		for _, v := range res.Violations {
			if v.Severity == domain.SeverityWarn {
				s.logger.Warn("rule warning", "operation", op, "rule", v.Rule, "message", v.Message)
			}
		}
		return entityID, err
	})
	return res, err
}
