package payments

import (
	"time"

	"github.com/avelarlabs/solpay-backend/pkg/enums"
)

// PaymentIntent is the unit of reconciliation: an expected future payment
// against the treasury address, prior to ledger confirmation.
type PaymentIntent struct {
	ID               string            `json:"id"`
	PayerReference   string            `json:"payer_reference"`
	ExpectedLamports int64             `json:"expected_lamports"`
	Status           enums.IntentStatus `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	ExpiresAt        time.Time         `json:"expires_at"`
	ConfirmedAt      *time.Time        `json:"confirmed_at,omitempty"`
	MatchedTxRef     string            `json:"matched_tx_ref,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// Confirmed reports whether the intent reached the confirmed state.
func (p PaymentIntent) Confirmed() bool {
	return p.Status == enums.IntentStatusConfirmed
}

// Overdue reports whether the intent's TTL elapsed at the given instant.
func (p PaymentIntent) Overdue(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

func (p PaymentIntent) clone() PaymentIntent {
	out := p
	if p.ConfirmedAt != nil {
		confirmedAt := *p.ConfirmedAt
		out.ConfirmedAt = &confirmedAt
	}
	if p.Metadata != nil {
		out.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}
