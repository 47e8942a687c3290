package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/avelarlabs/solpay-backend/internal/matcher"
	"github.com/avelarlabs/solpay-backend/pkg/config"
	pkgerrors "github.com/avelarlabs/solpay-backend/pkg/errors"
	"github.com/avelarlabs/solpay-backend/pkg/logger"
)

// IndexerSourceName labels the indexer adapter in logs and metrics.
const IndexerSourceName = "indexer"

const retryBase = 250 * time.Millisecond

// IndexerSource fetches enriched candidate transactions from the Helius
// enhanced transactions API. Cheaper and faster than walking the node, so
// the matcher consults it first when configured.
type IndexerSource struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxRetries uint64
	logg       *logger.Logger
}

// NewIndexerSource builds the indexer adapter from configuration.
func NewIndexerSource(cfg config.IndexerConfig, logg *logger.Logger) (*IndexerSource, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("indexer base url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid indexer base url: %w", err)
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("indexer api key is required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &IndexerSource{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		maxRetries: uint64(maxRetries),
		logg:       logg,
	}, nil
}

// Name implements matcher.Source.
func (s *IndexerSource) Name() string { return IndexerSourceName }

// FetchRecent implements matcher.Source. Rate limits, 5xx responses and
// transport errors are retried with exponential backoff before the failure
// is surfaced; malformed payloads and client errors fail immediately.
func (s *IndexerSource) FetchRecent(ctx context.Context, address string, limit int) ([]matcher.Transaction, error) {
	endpoint := fmt.Sprintf("%s/v0/addresses/%s/transactions", s.baseURL, url.PathEscape(address))

	var payload []indexedTransaction
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		q := req.URL.Query()
		q.Set("api-key", s.apiKey)
		q.Set("limit", strconv.Itoa(limit))
		req.URL.RawQuery = q.Encode()

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			io.Copy(io.Discard, resp.Body)
			return retry.RetryableError(fmt.Errorf("indexer responded %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("indexer responded %d", resp.StatusCode)
		}

		payload = payload[:0]
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return fmt.Errorf("decode indexer response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "indexer fetch")
	}

	transactions := make([]matcher.Transaction, 0, len(payload))
	for _, tx := range payload {
		if tx.Signature == "" {
			continue
		}
		transactions = append(transactions, tx.toMatcherTransaction())
	}
	return transactions, nil
}

type indexedTransaction struct {
	Signature        string           `json:"signature"`
	Timestamp        int64            `json:"timestamp"`
	TransactionError any              `json:"transactionError"`
	NativeTransfers  []nativeTransfer `json:"nativeTransfers"`
}

type nativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          int64  `json:"amount"`
}

func (t indexedTransaction) toMatcherTransaction() matcher.Transaction {
	changes := make([]matcher.BalanceChange, 0, 2*len(t.NativeTransfers))
	for _, transfer := range t.NativeTransfers {
		if transfer.FromUserAccount != "" {
			changes = append(changes, matcher.BalanceChange{
				Account:       transfer.FromUserAccount,
				DeltaLamports: -transfer.Amount,
			})
		}
		if transfer.ToUserAccount != "" {
			changes = append(changes, matcher.BalanceChange{
				Account:       transfer.ToUserAccount,
				DeltaLamports: transfer.Amount,
			})
		}
	}
	return matcher.Transaction{
		Ref:       t.Signature,
		BlockTime: time.Unix(t.Timestamp, 0).UTC(),
		Success:   t.TransactionError == nil,
		Changes:   changes,
	}
}
