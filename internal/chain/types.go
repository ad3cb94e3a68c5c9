// Package chain models the raw transaction records returned by a BigDipper
// style GraphQL indexer for a Cosmos SDK chain.
package chain

import (
	"bytes"
	"strconv"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is one element of an indexer export: {"transaction": {...}}.
type Envelope struct {
	Transaction *Transaction `json:"transaction"`
}

// Transaction is a single on-chain transaction as reported by the indexer.
type Transaction struct {
	Hash     string    `json:"hash"`
	Height   Height    `json:"height"`
	Success  bool      `json:"success"`
	Fee      Fee       `json:"fee"`
	Block    Block     `json:"block"`
	Messages Messages  `json:"messages"`
	Logs     EventLogs `json:"logs"`
}

// Fee carries the coins paid for a transaction. Only the first entry is used.
type Fee struct {
	Amount Coins `json:"amount"`
}

type Block struct {
	Height    Height `json:"height"`
	Timestamp string `json:"timestamp"`
}

// EventLog is the per-message log emitted by the chain.
type EventLog struct {
	MsgIndex int    `json:"msg_index"`
	Events   Events `json:"events"`
}

type Event struct {
	Type       string     `json:"type"`
	Attributes Attributes `json:"attributes"`
}

type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Coin is an amount in base units of a denomination, as a decimal integer string.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// Height accepts both JSON numbers and numeric strings. Anything else decodes
// as 0 so the rest of the transaction survives.
type Height int64

func (h *Height) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		*h = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		*h = 0
		return nil
	}
	*h = Height(v)
	return nil
}

// The collections below decode element by element and drop entries that are
// not well-formed, so a single bad log entry never rejects the transaction.

type EventLogs []EventLog

func (l *EventLogs) UnmarshalJSON(data []byte) error {
	*l = decodeLenient[EventLog](data)
	return nil
}

type Events []Event

func (e *Events) UnmarshalJSON(data []byte) error {
	*e = decodeLenient[Event](data)
	return nil
}

type Attributes []Attribute

func (a *Attributes) UnmarshalJSON(data []byte) error {
	*a = decodeLenient[Attribute](data)
	return nil
}

type Coins []Coin

func (c *Coins) UnmarshalJSON(data []byte) error {
	*c = decodeLenient[Coin](data)
	return nil
}

func decodeLenient[T any](data []byte) []T {
	var raw []jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
