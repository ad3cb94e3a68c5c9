package pipeline

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/cheqd-ledger/internal/chain"
	"github.com/dvloznov/cheqd-ledger/internal/ledger"
	"github.com/dvloznov/cheqd-ledger/internal/logger"
)

// ErrMalformedTransaction marks a transaction that cannot be turned into a record.
var ErrMalformedTransaction = errors.New("malformed transaction")

// Outcome tells what the assembler did with a transaction.
type Outcome int

const (
	OutcomeRecorded Outcome = iota
	OutcomeNoMessages
	OutcomeClientUpdateOnly
	OutcomeNoEffect
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecorded:
		return "recorded"
	case OutcomeNoMessages:
		return "no_messages"
	case OutcomeClientUpdateOnly:
		return "client_update_only"
	case OutcomeNoEffect:
		return "no_effect"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Assembler turns one transaction into at most one ledger record.
type Assembler struct {
	Classifier Classifier
	// DebugHash, when set, dumps the matching transaction at debug level.
	DebugHash string
	log       zerolog.Logger
}

func NewAssembler(address string, unit chain.Unit, log zerolog.Logger) *Assembler {
	return &Assembler{
		Classifier: Classifier{Address: address, Unit: unit},
		log:        log,
	}
}

// Assemble classifies every message of tx onto a single record. A nil record
// with a nil error means the transaction was skipped; the outcome says why.
// Panics raised while classifying are returned as errors.
func (a *Assembler) Assemble(tx *chain.Transaction) (rec *ledger.Record, outcome Outcome, err error) {
	if tx == nil {
		return nil, OutcomeFailed, fmt.Errorf("Assemble: %w: nil transaction", ErrMalformedTransaction)
	}
	defer func() {
		if r := recover(); r != nil {
			rec, outcome = nil, OutcomeFailed
			err = fmt.Errorf("Assemble: transaction %s: panic: %v", tx.Hash, r)
		}
	}()

	if a.DebugHash != "" && tx.Hash == a.DebugHash {
		a.dump(tx)
	}

	if len(tx.Messages) == 0 {
		a.log.Debug().Str("tx_hash", tx.Hash).Msg("no messages in transaction")
		return nil, OutcomeNoMessages, nil
	}
	if onlyClientUpdates(tx.Messages) {
		return nil, OutcomeClientUpdateOnly, nil
	}

	ts, err := chain.ParseTimestamp(tx.Block.Timestamp)
	if err != nil {
		return nil, OutcomeFailed, fmt.Errorf("Assemble: transaction %s: %w: %v", tx.Hash, ErrMalformedTransaction, err)
	}

	rec = ledger.NewRecord(ts, tx.Hash)
	rec.Fee = a.fee(tx)
	if !tx.Success {
		rec.Labels.Add(ledger.LabelCost)
	}

	for _, msg := range tx.Messages {
		a.Classifier.Apply(rec, tx, msg)
	}

	if !rec.HasEffect() {
		a.log.Debug().Str("tx_hash", tx.Hash).Msg("transaction has no financial effect")
		return nil, OutcomeNoEffect, nil
	}
	return rec, OutcomeRecorded, nil
}

// fee converts the first fee coin. Fees in other denominations are ignored.
func (a *Assembler) fee(tx *chain.Transaction) *ledger.Amount {
	if len(tx.Fee.Amount) == 0 {
		return nil
	}
	unit := a.Classifier.Unit
	v, ok := unit.Value(tx.Fee.Amount[0])
	if !ok {
		a.log.Debug().Str("tx_hash", tx.Hash).Interface("fee", tx.Fee.Amount[0]).Msg("fee not in native denomination")
		return nil
	}
	return ledger.NewAmount(unit.ToDisplay(v), unit.Symbol)
}

func (a *Assembler) dump(tx *chain.Transaction) {
	log := logger.WithFields(a.log, map[string]interface{}{
		"tx_hash":  tx.Hash,
		"height":   int64(tx.Height),
		"messages": len(tx.Messages),
	})
	b, err := json.MarshalIndent(tx, "", "  ")
	if err != nil {
		log.Debug().Err(err).Msg("cannot dump transaction")
		return
	}
	log.Debug().RawJSON("transaction", b).Msg("Full transaction data")
}

func onlyClientUpdates(msgs chain.Messages) bool {
	for _, m := range msgs {
		if _, ok := m.(*chain.IBCClientUpdate); !ok {
			return false
		}
	}
	return true
}
