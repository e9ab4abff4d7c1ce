package swap

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/lovecigare/jupito-swap/internal/types"
)

// ErrMalformedRequest means the build endpoint returned a blob that does not
// deserialize into a transaction.
var ErrMalformedRequest = errors.New("malformed transaction payload")

type builder interface {
	BuildSwap(ctx context.Context, quote types.Quote, tipLamports uint64, userPublicKey string) (string, error)
}

// Assembler turns a quote into a signed transaction. Stateless aside from the
// payer key; exactly one signature is applied per attempt.
type Assembler struct {
	builder builder
	payer   solana.PrivateKey
	log     *zap.Logger
}

func NewAssembler(b builder, payer solana.PrivateKey, log *zap.Logger) *Assembler {
	return &Assembler{builder: b, payer: payer, log: log}
}

func (a *Assembler) PublicKey() solana.PublicKey { return a.payer.PublicKey() }

// Assemble fetches the unsigned blob from the build endpoint, decodes it and
// signs it with the payer key. The returned transaction is the single payload
// broadcast to every relay; it is never modified afterwards.
func (a *Assembler) Assemble(ctx context.Context, quote types.Quote, params types.ExecutionParams) (*solana.Transaction, error) {
	blob, err := a.builder.BuildSwap(ctx, quote, params.TipLamports, a.payer.PublicKey().String())
	if err != nil {
		return nil, err
	}

	tx, err := Decode(blob)
	if err != nil {
		return nil, err
	}

	if err := Sign(tx, a.payer); err != nil {
		return nil, err
	}

	a.log.Debug("transaction assembled and signed",
		zap.String("signature", tx.Signatures[0].String()),
		zap.Uint64("tip_lamports", params.TipLamports))
	return tx, nil
}

// Decode deserializes a base64 transaction blob.
func Decode(blob string) (*solana.Transaction, error) {
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", ErrMalformedRequest, err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return tx, nil
}

// Sign serializes the message and places the payer signature at index 0, the
// fee-payer slot. The message itself is left untouched.
func Sign(tx *solana.Transaction, payer solana.PrivateKey) error {
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("%w: serialize message: %v", ErrMalformedRequest, err)
	}
	sig, err := payer.Sign(msg)
	if err != nil {
		return fmt.Errorf("sign: %w", err)
	}

	need := int(tx.Message.Header.NumRequiredSignatures)
	for len(tx.Signatures) < need {
		tx.Signatures = append(tx.Signatures, solana.Signature{})
	}
	if len(tx.Signatures) == 0 {
		tx.Signatures = []solana.Signature{{}}
	}
	tx.Signatures[0] = sig
	return nil
}
