package matcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	pkgerrors "github.com/avelarlabs/solpay-backend/pkg/errors"
	"github.com/avelarlabs/solpay-backend/pkg/logger"
	"github.com/avelarlabs/solpay-backend/pkg/metrics"
)

// BalanceChange is one participant's lamport delta inside a transaction.
type BalanceChange struct {
	Account       string
	DeltaLamports int64
}

// Transaction is a ledger transaction as reported by a Source, newest first.
type Transaction struct {
	Ref       string
	BlockTime time.Time
	Success   bool
	Changes   []BalanceChange
}

// Source fetches recent transactions touching an address. Implementations
// surface their failures as DEPENDENCY_ERROR coded errors so the matcher can
// fall through to the next source.
type Source interface {
	Name() string
	FetchRecent(ctx context.Context, address string, limit int) ([]Transaction, error)
}

// Request carries the intent constraints a candidate must satisfy.
type Request struct {
	ExpectedLamports int64
	NotBefore        time.Time
}

// Match is a definitive confirmation found by one of the sources.
type Match struct {
	TxRef    string
	Source   string
	Lamports int64
}

// Params configure the matcher.
type Params struct {
	Sources           []Source
	TreasuryAddress   string
	ToleranceLamports int64
	CandidateLimit    int
	Logger            *logger.Logger
	Metrics           *metrics.ReconcileMetrics
}

// Matcher decides whether the ledger shows a pending intent as satisfied.
// Sources are consulted in order; a source that answers is authoritative,
// a source that fails is skipped.
type Matcher struct {
	sources   []Source
	treasury  string
	tolerance int64
	limit     int
	logg      *logger.Logger
	metrics   *metrics.ReconcileMetrics
}

// New builds a matcher over the ordered sources.
func New(params Params) (*Matcher, error) {
	if len(params.Sources) == 0 {
		return nil, fmt.Errorf("at least one transaction source required")
	}
	if params.TreasuryAddress == "" {
		return nil, fmt.Errorf("treasury address required")
	}
	if params.ToleranceLamports < 0 {
		return nil, fmt.Errorf("tolerance must not be negative")
	}
	limit := params.CandidateLimit
	if limit <= 0 {
		limit = 10
	}
	return &Matcher{
		sources:   params.Sources,
		treasury:  params.TreasuryAddress,
		tolerance: params.ToleranceLamports,
		limit:     limit,
		logg:      params.Logger,
		metrics:   params.Metrics,
	}, nil
}

// Match returns the first eligible candidate in source delivery order, nil if
// a source answered and nothing matched, or an error when every source
// failed. The error aggregates the per-source failures; callers treat it as
// an inconclusive check, not a terminal failure.
func (m *Matcher) Match(ctx context.Context, req Request) (*Match, error) {
	var sourceErrs []error
	for i, source := range m.sources {
		transactions, err := source.FetchRecent(ctx, m.treasury, m.limit)
		if err != nil {
			m.metrics.IncSourceError(source.Name())
			if i < len(m.sources)-1 {
				m.metrics.IncFallback()
			}
			if m.logg != nil {
				logCtx := m.logg.WithSource(ctx, source.Name())
				m.logg.Warn(logCtx, "candidate fetch failed, trying next source")
			}
			sourceErrs = append(sourceErrs, fmt.Errorf("%s: %w", source.Name(), err))
			continue
		}
		for _, tx := range transactions {
			if m.eligible(tx, req) {
				return &Match{
					TxRef:    tx.Ref,
					Source:   source.Name(),
					Lamports: m.treasuryDelta(tx),
				}, nil
			}
		}
		// This source answered; its no-match is authoritative.
		return nil, nil
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, multierr.Combine(sourceErrs...), "all transaction sources failed")
}

func (m *Matcher) eligible(tx Transaction, req Request) bool {
	if !tx.Success {
		return false
	}
	if tx.BlockTime.Before(req.NotBefore) {
		return false
	}
	delta := m.treasuryDelta(tx)
	if delta <= 0 {
		return false
	}
	diff := delta - req.ExpectedLamports
	if diff < 0 {
		diff = -diff
	}
	return diff <= m.tolerance
}

func (m *Matcher) treasuryDelta(tx Transaction) int64 {
	var delta int64
	for _, change := range tx.Changes {
		if change.Account == m.treasury {
			delta += change.DeltaLamports
		}
	}
	return delta
}
