package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	pkgerrors "github.com/avelarlabs/solpay-backend/pkg/errors"
)

type stubRPC struct {
	signatures []*rpc.TransactionSignature
	sigErr     error
	results    map[solanago.Signature]*rpc.GetTransactionResult
	txErr      error
	txCalls    int
}

func (s *stubRPC) GetSignaturesForAddressWithOpts(ctx context.Context, account solanago.PublicKey, opts *rpc.GetSignaturesForAddressOpts) ([]*rpc.TransactionSignature, error) {
	if s.sigErr != nil {
		return nil, s.sigErr
	}
	return s.signatures, nil
}

func (s *stubRPC) GetTransaction(ctx context.Context, signature solanago.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error) {
	s.txCalls++
	if s.txErr != nil {
		return nil, s.txErr
	}
	return s.results[signature], nil
}

// envelopeFor wraps a serialized transaction the way the RPC node returns it,
// so decodeTransaction exercises the real base64 decode path.
func envelopeFor(t *testing.T, keys ...solanago.PublicKey) *rpc.TransactionResultEnvelope {
	t.Helper()
	tx := solanago.Transaction{
		Signatures: []solanago.Signature{{1}},
		Message: solanago.Message{
			Header:          solanago.MessageHeader{NumRequiredSignatures: 1},
			AccountKeys:     keys,
			RecentBlockhash: solanago.Hash{2},
		},
	}
	bin, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal transaction: %v", err)
	}
	raw, err := json.Marshal([]string{base64.StdEncoding.EncodeToString(bin), "base64"})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	var envelope rpc.TransactionResultEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	return &envelope
}

func TestRPCFetchRecentDecodesBalanceDeltas(t *testing.T) {
	payer := solanago.MustPublicKeyFromBase58("4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T")
	treasury := solanago.MustPublicKeyFromBase58(testTreasury)
	program := solanago.SystemProgramID

	sig := solanago.Signature{1}
	blockTime := solanago.UnixTimeSeconds(1770000000)
	client := &stubRPC{
		signatures: []*rpc.TransactionSignature{
			{Signature: sig, BlockTime: &blockTime},
		},
		results: map[solanago.Signature]*rpc.GetTransactionResult{
			sig: {
				Transaction: envelopeFor(t, payer, treasury, program),
				Meta: &rpc.TransactionMeta{
					PreBalances:  []uint64{5_000_000_000, 1_000_000_000, 1},
					PostBalances: []uint64{3_499_995_000, 2_500_000_000, 1},
				},
			},
		},
	}
	source := &RPCSource{client: client, commitment: rpc.CommitmentConfirmed}

	txs, err := source.FetchRecent(context.Background(), testTreasury, 10)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	tx := txs[0]
	if tx.Ref != sig.String() || !tx.Success {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if !tx.BlockTime.Equal(time.Unix(1770000000, 0).UTC()) {
		t.Fatalf("unexpected block time %v", tx.BlockTime)
	}
	// The untouched program account must not produce a change entry.
	if len(tx.Changes) != 2 {
		t.Fatalf("expected 2 balance changes, got %d: %+v", len(tx.Changes), tx.Changes)
	}
	deltas := map[string]int64{}
	for _, change := range tx.Changes {
		deltas[change.Account] = change.DeltaLamports
	}
	if deltas[treasury.String()] != 1_500_000_000 {
		t.Fatalf("unexpected treasury delta %d", deltas[treasury.String()])
	}
	if deltas[payer.String()] != -1_500_005_000 {
		t.Fatalf("unexpected payer delta %d", deltas[payer.String()])
	}
}

func TestRPCFetchRecentSkipsFailedSignaturesWithoutDetailFetch(t *testing.T) {
	blockTime := solanago.UnixTimeSeconds(1770000000)
	client := &stubRPC{
		signatures: []*rpc.TransactionSignature{
			{Signature: solanago.Signature{7}, BlockTime: &blockTime, Err: map[string]interface{}{"InstructionError": nil}},
			{Signature: solanago.Signature{8}}, // no block time yet
		},
	}
	source := &RPCSource{client: client, commitment: rpc.CommitmentConfirmed}

	txs, err := source.FetchRecent(context.Background(), testTreasury, 10)
	if err != nil {
		t.Fatalf("FetchRecent: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected no candidates, got %d", len(txs))
	}
	if client.txCalls != 0 {
		t.Fatalf("failed signatures must be skipped before the detail fetch, got %d calls", client.txCalls)
	}
}

func TestRPCFetchRecentInvalidAddress(t *testing.T) {
	source := &RPCSource{client: &stubRPC{}, commitment: rpc.CommitmentConfirmed}
	_, err := source.FetchRecent(context.Background(), "not-a-key", 10)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRPCFetchRecentSignatureListFailure(t *testing.T) {
	source := &RPCSource{
		client:     &stubRPC{sigErr: context.DeadlineExceeded},
		commitment: rpc.CommitmentConfirmed,
	}
	_, err := source.FetchRecent(context.Background(), testTreasury, 10)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestRPCFetchRecentDetailFailureErrorsWholeFetch(t *testing.T) {
	blockTime := solanago.UnixTimeSeconds(1770000000)
	source := &RPCSource{
		client: &stubRPC{
			signatures: []*rpc.TransactionSignature{
				{Signature: solanago.Signature{9}, BlockTime: &blockTime},
			},
			txErr: context.DeadlineExceeded,
		},
		commitment: rpc.CommitmentConfirmed,
	}
	_, err := source.FetchRecent(context.Background(), testTreasury, 10)
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestParseCommitment(t *testing.T) {
	cases := []struct {
		raw  string
		want rpc.CommitmentType
		ok   bool
	}{
		{"", rpc.CommitmentConfirmed, true},
		{"confirmed", rpc.CommitmentConfirmed, true},
		{" Finalized ", rpc.CommitmentFinalized, true},
		{"processed", rpc.CommitmentProcessed, true},
		{"instant", "", false},
	}
	for _, tc := range cases {
		got, err := parseCommitment(tc.raw)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("parseCommitment(%q) = %v, %v", tc.raw, got, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("parseCommitment(%q) expected error", tc.raw)
		}
	}
}
