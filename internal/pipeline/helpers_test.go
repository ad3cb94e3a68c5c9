package pipeline

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/cheqd-ledger/internal/chain"
	"github.com/dvloznov/cheqd-ledger/internal/ledger"
)

const (
	me        = "cheqd1me"
	you       = "cheqd1you"
	validator = "cheqdvaloper1val"
)

func newTestAssembler() *Assembler {
	return NewAssembler(me, chain.CHEQ, zerolog.New(io.Discard))
}

func newTestRecord() *ledger.Record {
	return &ledger.Record{
		Date:       "2024-01-01 00:00",
		Labels:     ledger.StringSet{},
		Senders:    ledger.StringSet{},
		Recipients: ledger.StringSet{},
	}
}

func ncheq(amount string) *chain.Coin {
	return &chain.Coin{Denom: "ncheq", Amount: amount}
}

func event(typ string, kv ...string) chain.Event {
	ev := chain.Event{Type: typ}
	for i := 0; i+1 < len(kv); i += 2 {
		ev.Attributes = append(ev.Attributes, chain.Attribute{Key: kv[i], Value: kv[i+1]})
	}
	return ev
}

func logsOf(events ...chain.Event) chain.EventLogs {
	return chain.EventLogs{{Events: events}}
}

func tx(hash string, success bool, msgs ...chain.Message) *chain.Transaction {
	return &chain.Transaction{
		Hash:     hash,
		Success:  success,
		Block:    chain.Block{Timestamp: "2024-01-01T00:00:00Z"},
		Messages: msgs,
	}
}

// value returns the amount as a display string, or "" when absent.
func value(a *ledger.Amount) string {
	if a == nil {
		return ""
	}
	return ledger.FormatValue(a.Value)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
