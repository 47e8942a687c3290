package solana

import (
	"context"
	"fmt"
	"strings"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/avelarlabs/solpay-backend/internal/matcher"
	"github.com/avelarlabs/solpay-backend/pkg/config"
	pkgerrors "github.com/avelarlabs/solpay-backend/pkg/errors"
	"github.com/avelarlabs/solpay-backend/pkg/logger"
)

// RPCSourceName labels the direct-ledger adapter in logs and metrics.
const RPCSourceName = "rpc"

// rpcAPI is the slice of the solana-go client the adapter uses.
type rpcAPI interface {
	GetSignaturesForAddressWithOpts(ctx context.Context, account solanago.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error)
	GetTransaction(ctx context.Context, signature solanago.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

// RPCSource fetches candidate transactions straight from a Solana RPC node.
type RPCSource struct {
	client     rpcAPI
	commitment rpc.CommitmentType
	logg       *logger.Logger
}

// NewRPCSource builds the direct-ledger adapter from configuration.
func NewRPCSource(cfg config.SolanaConfig, logg *logger.Logger) (*RPCSource, error) {
	url := strings.TrimSpace(cfg.RPCURL)
	if url == "" {
		return nil, fmt.Errorf("solana rpc url is required")
	}
	commitment, err := parseCommitment(cfg.Commitment)
	if err != nil {
		return nil, err
	}
	return &RPCSource{
		client:     rpc.New(url),
		commitment: commitment,
		logg:       logg,
	}, nil
}

// Name implements matcher.Source.
func (s *RPCSource) Name() string { return RPCSourceName }

// FetchRecent implements matcher.Source. Signatures that the node reports as
// failed are skipped without a detail fetch; a failed detail fetch surfaces
// as a DEPENDENCY_ERROR so the matcher can treat the whole attempt as a
// source failure rather than silently missing a candidate.
func (s *RPCSource) FetchRecent(ctx context.Context, address string, limit int) ([]matcher.Transaction, error) {
	account, err := solanago.PublicKeyFromBase58(address)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid treasury address")
	}

	signatures, err := s.client.GetSignaturesForAddressWithOpts(ctx, account, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: s.commitment,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "solana rpc: list signatures")
	}

	maxVersion := uint64(0)
	transactions := make([]matcher.Transaction, 0, len(signatures))
	for _, sig := range signatures {
		if sig == nil || sig.Err != nil || sig.BlockTime == nil {
			continue
		}
		result, err := s.client.GetTransaction(ctx, sig.Signature, &rpc.GetTransactionOpts{
			Encoding:                       solanago.EncodingBase64,
			Commitment:                     s.commitment,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "solana rpc: get transaction")
		}
		tx, err := decodeTransaction(sig, result)
		if err != nil {
			return nil, err
		}
		if tx != nil {
			transactions = append(transactions, *tx)
		}
	}
	return transactions, nil
}

func decodeTransaction(sig *rpc.TransactionSignature, result *rpc.GetTransactionResult) (*matcher.Transaction, error) {
	if result == nil || result.Meta == nil || result.Transaction == nil {
		return nil, nil
	}
	decoded, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "solana rpc: decode transaction")
	}
	keys := decoded.Message.AccountKeys
	pre := result.Meta.PreBalances
	post := result.Meta.PostBalances
	if len(pre) != len(post) || len(keys) > len(pre) {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "solana rpc: malformed balance arrays")
	}

	changes := make([]matcher.BalanceChange, 0, len(keys))
	for i, key := range keys {
		delta := int64(post[i]) - int64(pre[i])
		if delta == 0 {
			continue
		}
		changes = append(changes, matcher.BalanceChange{
			Account:       key.String(),
			DeltaLamports: delta,
		})
	}

	return &matcher.Transaction{
		Ref:       sig.Signature.String(),
		BlockTime: sig.BlockTime.Time().UTC(),
		Success:   result.Meta.Err == nil,
		Changes:   changes,
	}, nil
}

func parseCommitment(raw string) (rpc.CommitmentType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "processed":
		return rpc.CommitmentProcessed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	default:
		return "", fmt.Errorf("unsupported commitment %q", raw)
	}
}
