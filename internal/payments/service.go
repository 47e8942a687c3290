package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avelarlabs/solpay-backend/internal/matcher"
	"github.com/avelarlabs/solpay-backend/pkg/enums"
	pkgerrors "github.com/avelarlabs/solpay-backend/pkg/errors"
	"github.com/avelarlabs/solpay-backend/pkg/logger"
	"github.com/avelarlabs/solpay-backend/pkg/metrics"
)

const (
	defaultIntentTTL    = 30 * time.Minute
	defaultRetention    = 24 * time.Hour
	defaultCheckTimeout = 10 * time.Second
)

// ConfirmationMatcher is the slice of the matcher the lifecycle service uses.
type ConfirmationMatcher interface {
	Match(ctx context.Context, req matcher.Request) (*matcher.Match, error)
}

// CreateIntentInput captures the caller-provided fields of a new intent.
type CreateIntentInput struct {
	PayerReference   string
	ExpectedLamports int64
	Metadata         map[string]string
}

// SweepStats reports what a cleanup pass did.
type SweepStats struct {
	Expired int
	Removed int
}

// Service drives the intent lifecycle: creation, on-demand reconciliation
// against the ledger, and the periodic expiration/cleanup sweep.
type Service interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*PaymentIntent, error)
	CheckStatus(ctx context.Context, id string) (*PaymentIntent, error)
	ListPendingForPayer(ctx context.Context, payerReference string) ([]PaymentIntent, error)
	SweepExpiredAndOld(ctx context.Context) (SweepStats, error)
	TreasuryAddress() string
}

// ServiceParams configure the lifecycle service.
type ServiceParams struct {
	Store           Store
	Matcher         ConfirmationMatcher
	Logger          *logger.Logger
	Metrics         *metrics.ReconcileMetrics
	TreasuryAddress string
	IntentTTL       time.Duration
	Retention       time.Duration
	CheckTimeout    time.Duration
}

type service struct {
	store        Store
	matcher      ConfirmationMatcher
	logg         *logger.Logger
	metrics      *metrics.ReconcileMetrics
	treasury     string
	ttl          time.Duration
	retention    time.Duration
	checkTimeout time.Duration
	now          func() time.Time
}

// NewService wires the lifecycle service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("intent store required")
	}
	if params.Matcher == nil {
		return nil, fmt.Errorf("confirmation matcher required")
	}
	if strings.TrimSpace(params.TreasuryAddress) == "" {
		return nil, fmt.Errorf("treasury address required")
	}
	ttl := params.IntentTTL
	if ttl <= 0 {
		ttl = defaultIntentTTL
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	checkTimeout := params.CheckTimeout
	if checkTimeout <= 0 {
		checkTimeout = defaultCheckTimeout
	}
	return &service{
		store:        params.Store,
		matcher:      params.Matcher,
		logg:         params.Logger,
		metrics:      params.Metrics,
		treasury:     params.TreasuryAddress,
		ttl:          ttl,
		retention:    retention,
		checkTimeout: checkTimeout,
		now:          time.Now,
	}, nil
}

func (s *service) TreasuryAddress() string {
	return s.treasury
}

func (s *service) CreateIntent(ctx context.Context, input CreateIntentInput) (*PaymentIntent, error) {
	if strings.TrimSpace(input.PayerReference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer reference is required")
	}
	if input.ExpectedLamports <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expected amount must be positive")
	}

	now := s.now().UTC()
	intent := PaymentIntent{
		ID:               uuid.NewString(),
		PayerReference:   input.PayerReference,
		ExpectedLamports: input.ExpectedLamports,
		Status:           enums.IntentStatusPending,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.ttl),
		Metadata:         input.Metadata,
	}
	if err := s.store.Create(ctx, intent); err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithIntentID(ctx, intent.ID)
		logCtx = s.logg.WithPayerReference(logCtx, intent.PayerReference)
		s.logg.Info(logCtx, "payment intent created")
	}
	return &intent, nil
}

func (s *service) CheckStatus(ctx context.Context, id string) (*PaymentIntent, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "intent id is required")
	}

	intent, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// Terminal states are sticky; no ledger consultation.
	if intent.Status.IsTerminal() {
		return &intent, nil
	}

	// Expiration is decided locally, before any external call.
	now := s.now().UTC()
	if intent.Overdue(now) {
		expired, _, err := s.expire(ctx, id)
		if err != nil {
			return nil, err
		}
		return expired, nil
	}

	checkCtx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()
	match, err := s.matcher.Match(checkCtx, matcher.Request{
		ExpectedLamports: intent.ExpectedLamports,
		NotBefore:        intent.CreatedAt,
	})
	if err != nil {
		// Ledger and indexer unavailability is expected and recoverable;
		// the caller just sees a still-pending intent and polls again.
		s.metrics.IncInconclusive()
		if s.logg != nil {
			logCtx := s.logg.WithIntentID(ctx, id)
			s.logg.Warn(logCtx, "reconciliation inconclusive: "+err.Error())
		}
		return &intent, nil
	}
	if match == nil {
		return &intent, nil
	}

	confirmedAt := s.now().UTC()
	updated, err := s.store.Mutate(ctx, id, func(stored *PaymentIntent) error {
		if stored.Status != enums.IntentStatusPending {
			return nil
		}
		stored.Status = enums.IntentStatusConfirmed
		stored.ConfirmedAt = &confirmedAt
		stored.MatchedTxRef = match.TxRef
		return nil
	})
	if err != nil {
		return nil, err
	}
	if updated.Status == enums.IntentStatusConfirmed && updated.MatchedTxRef == match.TxRef {
		s.metrics.IncConfirmation(match.Source)
		if s.logg != nil {
			logCtx := s.logg.WithIntentID(ctx, id)
			logCtx = s.logg.WithSource(logCtx, match.Source)
			logCtx = s.logg.WithField(logCtx, "tx_ref", match.TxRef)
			s.logg.Info(logCtx, "payment intent confirmed")
		}
	}
	return &updated, nil
}

func (s *service) ListPendingForPayer(ctx context.Context, payerReference string) ([]PaymentIntent, error) {
	if strings.TrimSpace(payerReference) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payer reference is required")
	}
	pending := enums.IntentStatusPending
	return s.store.List(ctx, ListFilter{PayerReference: payerReference, Status: &pending})
}

// SweepExpiredAndOld first demotes overdue pending intents to expired, then
// removes terminal intents older than the retention window. Pending intents
// are never removed.
func (s *service) SweepExpiredAndOld(ctx context.Context) (SweepStats, error) {
	intents, err := s.store.List(ctx, ListFilter{})
	if err != nil {
		return SweepStats{}, err
	}

	stats := SweepStats{}
	now := s.now().UTC()
	cutoff := now.Add(-s.retention)
	for _, intent := range intents {
		if intent.Status == enums.IntentStatusPending && intent.Overdue(now) {
			expired, transitioned, err := s.expire(ctx, intent.ID)
			if err != nil {
				if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
					continue
				}
				return stats, err
			}
			if transitioned {
				stats.Expired++
			}
			intent = *expired
		}
		if !intent.Status.IsTerminal() {
			continue
		}
		if intent.CreatedAt.After(cutoff) {
			continue
		}
		removed, err := s.store.RemoveWhen(ctx, intent.ID, func(stored PaymentIntent) bool {
			return stored.Status.IsTerminal() && !stored.CreatedAt.After(cutoff)
		})
		if err != nil {
			return stats, err
		}
		if removed {
			stats.Removed++
		}
	}
	return stats, nil
}

func (s *service) expire(ctx context.Context, id string) (*PaymentIntent, bool, error) {
	transitioned := false
	updated, err := s.store.Mutate(ctx, id, func(stored *PaymentIntent) error {
		if stored.Status != enums.IntentStatusPending {
			return nil
		}
		stored.Status = enums.IntentStatusExpired
		transitioned = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if transitioned {
		s.metrics.IncExpiration()
		if s.logg != nil {
			logCtx := s.logg.WithIntentID(ctx, id)
			s.logg.Info(logCtx, "payment intent expired")
		}
	}
	return &updated, transitioned, nil
}
