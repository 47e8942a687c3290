package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/avelarlabs/solpay-backend/api/responses"
	"github.com/avelarlabs/solpay-backend/api/validators"
	"github.com/avelarlabs/solpay-backend/internal/payments"
	pkgerrors "github.com/avelarlabs/solpay-backend/pkg/errors"
	"github.com/avelarlabs/solpay-backend/pkg/logger"
)

type createPaymentPayload struct {
	PayerReference   string            `json:"payer_reference" validate:"required"`
	ExpectedLamports int64             `json:"expected_lamports" validate:"required,gt=0"`
	Metadata         map[string]string `json:"metadata"`
}

type paymentCreatedView struct {
	ID               string    `json:"id"`
	PayerReference   string    `json:"payer_reference"`
	TreasuryAddress  string    `json:"treasury_address"`
	ExpectedLamports int64     `json:"expected_lamports"`
	ExpectedSOL      string    `json:"expected_sol"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

type paymentStatusView struct {
	ID             string     `json:"id"`
	PayerReference string     `json:"payer_reference"`
	Status         string     `json:"status"`
	Confirmed      bool       `json:"confirmed"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      time.Time  `json:"expires_at"`
	ConfirmedAt    *time.Time `json:"confirmed_at,omitempty"`
	MatchedTxRef   string     `json:"matched_tx_ref,omitempty"`
}

type pendingPaymentView struct {
	ID               string    `json:"id"`
	PayerReference   string    `json:"payer_reference"`
	ExpectedLamports int64     `json:"expected_lamports"`
	ExpectedSOL      string    `json:"expected_sol"`
	CreatedAt        time.Time `json:"created_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

type pendingPaymentsView struct {
	Intents []pendingPaymentView `json:"intents"`
}

// lamportsToSOL renders a lamport amount as a decimal SOL string.
func lamportsToSOL(lamports int64) string {
	return decimal.NewFromInt(lamports).Shift(-9).String()
}

// PaymentCreate registers a new payment intent.
func PaymentCreate(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		var payload createPaymentPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		intent, err := svc.CreateIntent(ctx, payments.CreateIntentInput{
			PayerReference:   strings.TrimSpace(payload.PayerReference),
			ExpectedLamports: payload.ExpectedLamports,
			Metadata:         payload.Metadata,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentCreatedView{
			ID:               intent.ID,
			PayerReference:   intent.PayerReference,
			TreasuryAddress:  svc.TreasuryAddress(),
			ExpectedLamports: intent.ExpectedLamports,
			ExpectedSOL:      lamportsToSOL(intent.ExpectedLamports),
			Status:           intent.Status.String(),
			CreatedAt:        intent.CreatedAt,
			ExpiresAt:        intent.ExpiresAt,
		})
	}
}

// PaymentStatus runs the expiration check and, for pending intents, a
// reconciliation pass before reporting the intent's current state.
func PaymentStatus(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		intentID := strings.TrimSpace(chi.URLParam(r, "intentId"))
		if intentID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "intent id is required"))
			return
		}

		intent, err := svc.CheckStatus(ctx, intentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, paymentStatusView{
			ID:             intent.ID,
			PayerReference: intent.PayerReference,
			Status:         intent.Status.String(),
			Confirmed:      intent.Confirmed(),
			CreatedAt:      intent.CreatedAt,
			ExpiresAt:      intent.ExpiresAt,
			ConfirmedAt:    intent.ConfirmedAt,
			MatchedTxRef:   intent.MatchedTxRef,
		})
	}
}

// PaymentListPending returns the pending intents registered for a payer.
func PaymentListPending(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		payerRef := strings.TrimSpace(r.URL.Query().Get("payer_reference"))
		if payerRef == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payer_reference is required"))
			return
		}

		intents, err := svc.ListPendingForPayer(ctx, payerRef)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view := pendingPaymentsView{Intents: make([]pendingPaymentView, 0, len(intents))}
		for _, intent := range intents {
			view.Intents = append(view.Intents, pendingPaymentView{
				ID:               intent.ID,
				PayerReference:   intent.PayerReference,
				ExpectedLamports: intent.ExpectedLamports,
				ExpectedSOL:      lamportsToSOL(intent.ExpectedLamports),
				CreatedAt:        intent.CreatedAt,
				ExpiresAt:        intent.ExpiresAt,
			})
		}
		responses.WriteSuccess(w, view)
	}
}
