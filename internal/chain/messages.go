package chain

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Message type tags understood by the classifier.
const (
	TypeBankSend                  = "/cosmos.bank.v1beta1.MsgSend"
	TypeWithdrawDelegatorReward   = "/cosmos.distribution.v1beta1.MsgWithdrawDelegatorReward"
	TypeDelegate                  = "/cosmos.staking.v1beta1.MsgDelegate"
	TypeCancelUnbondingDelegation = "/cosmos.staking.v1beta1.MsgCancelUnbondingDelegation"
	TypeUndelegate                = "/cosmos.staking.v1beta1.MsgUndelegate"
	TypeBeginRedelegate           = "/cosmos.staking.v1beta1.MsgBeginRedelegate"
	TypeIBCTransfer               = "/ibc.applications.transfer.v1.MsgTransfer"
	TypeGovVote                   = "/cosmos.gov.v1beta1.MsgVote"
	TypeGovVoteV1                 = "/cosmos.gov.v1.MsgVote"
	TypeAuthzExec                 = "/cosmos.authz.v1beta1.MsgExec"
	TypeAuthzGrant                = "/cosmos.authz.v1beta1.MsgGrant"
	TypeAuthzRevoke               = "/cosmos.authz.v1beta1.MsgRevoke"
	TypeIBCClientUpdate           = "/ibc.core.client.v1.MsgUpdateClient"
)

// Message is one decoded transaction message. The set of implementations is
// closed; consumers switch on the concrete type.
type Message interface {
	TypeURL() string
	isMessage()
}

type BankSend struct {
	From   string `json:"from_address"`
	To     string `json:"to_address"`
	Amount Coins  `json:"amount"`
}

type WithdrawDelegatorReward struct {
	Delegator string `json:"delegator_address"`
	Validator string `json:"validator_address"`
}

type Delegate struct {
	Delegator string `json:"delegator_address"`
	Validator string `json:"validator_address"`
	Amount    *Coin  `json:"amount"`
}

type CancelUnbondingDelegation struct {
	Delegator      string `json:"delegator_address"`
	Validator      string `json:"validator_address"`
	Amount         *Coin  `json:"amount"`
	CreationHeight Height `json:"creation_height"`
}

type Undelegate struct {
	Delegator string `json:"delegator_address"`
	Validator string `json:"validator_address"`
	Amount    *Coin  `json:"amount"`
}

type BeginRedelegate struct {
	Delegator    string `json:"delegator_address"`
	ValidatorSrc string `json:"validator_src_address"`
	ValidatorDst string `json:"validator_dst_address"`
	Amount       *Coin  `json:"amount"`
}

type IBCTransfer struct {
	Sender        string `json:"sender"`
	Receiver      string `json:"receiver"`
	Token         *Coin  `json:"token"`
	SourcePort    string `json:"source_port"`
	SourceChannel string `json:"source_channel"`
}

type GovVote struct {
	Type       string `json:"-"`
	Voter      string `json:"voter"`
	ProposalID Height `json:"proposal_id"`
}

// AuthzExec wraps messages executed on behalf of a granter.
type AuthzExec struct {
	Grantee string   `json:"grantee"`
	Msgs    Messages `json:"msgs"`
}

// AuthzGrant is flattened on decode: AuthorizationType holds the full
// "@type" of the granted authorization.
type AuthzGrant struct {
	Granter           string
	Grantee           string
	AuthorizationType string
	Expiration        string
}

type AuthzRevoke struct {
	Granter    string `json:"granter"`
	Grantee    string `json:"grantee"`
	MsgTypeURL string `json:"msg_type_url"`
}

type IBCClientUpdate struct {
	ClientID string `json:"client_id"`
	Signer   string `json:"signer"`
}

// Unknown is any message whose tag is not recognised, or a recognised tag
// whose body could not be decoded (Err is then set).
type Unknown struct {
	Type string
	Err  error
}

func (*BankSend) TypeURL() string                  { return TypeBankSend }
func (*WithdrawDelegatorReward) TypeURL() string   { return TypeWithdrawDelegatorReward }
func (*Delegate) TypeURL() string                  { return TypeDelegate }
func (*CancelUnbondingDelegation) TypeURL() string { return TypeCancelUnbondingDelegation }
func (*Undelegate) TypeURL() string                { return TypeUndelegate }
func (*BeginRedelegate) TypeURL() string           { return TypeBeginRedelegate }
func (*IBCTransfer) TypeURL() string               { return TypeIBCTransfer }
func (*AuthzExec) TypeURL() string                 { return TypeAuthzExec }
func (*AuthzGrant) TypeURL() string                { return TypeAuthzGrant }
func (*AuthzRevoke) TypeURL() string               { return TypeAuthzRevoke }
func (*IBCClientUpdate) TypeURL() string           { return TypeIBCClientUpdate }
func (m *Unknown) TypeURL() string                 { return m.Type }

func (m *GovVote) TypeURL() string {
	if m.Type == "" {
		return TypeGovVote
	}
	return m.Type
}

func (*BankSend) isMessage()                  {}
func (*WithdrawDelegatorReward) isMessage()   {}
func (*Delegate) isMessage()                  {}
func (*CancelUnbondingDelegation) isMessage() {}
func (*Undelegate) isMessage()                {}
func (*BeginRedelegate) isMessage()           {}
func (*IBCTransfer) isMessage()               {}
func (*GovVote) isMessage()                   {}
func (*AuthzExec) isMessage()                 {}
func (*AuthzGrant) isMessage()                {}
func (*AuthzRevoke) isMessage()               {}
func (*IBCClientUpdate) isMessage()           {}
func (*Unknown) isMessage()                   {}

// ShortName returns the last dot-separated segment of a type tag,
// e.g. "MsgSend" for "/cosmos.bank.v1beta1.MsgSend".
func ShortName(typeURL string) string {
	if i := strings.LastIndex(typeURL, "."); i >= 0 {
		return typeURL[i+1:]
	}
	return strings.TrimPrefix(typeURL, "/")
}

// Messages decodes a JSON array of "@type" tagged objects into variants.
// Elements that are not objects are dropped.
type Messages []Message

func (m *Messages) UnmarshalJSON(data []byte) error {
	var raw []jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		*m = nil
		return nil
	}
	out := make(Messages, 0, len(raw))
	for _, item := range raw {
		msg, ok := DecodeMessage(item)
		if !ok {
			continue
		}
		out = append(out, msg)
	}
	*m = out
	return nil
}

// DecodeMessage decodes a single tagged message. It reports false when data is
// not a JSON object or carries no "@type".
func DecodeMessage(data []byte) (Message, bool) {
	var head struct {
		Type string `json:"@type"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.Type == "" {
		return nil, false
	}

	var (
		msg Message
		err error
	)
	switch head.Type {
	case TypeBankSend:
		msg, err = decodeInto(data, &BankSend{})
	case TypeWithdrawDelegatorReward:
		msg, err = decodeInto(data, &WithdrawDelegatorReward{})
	case TypeDelegate:
		msg, err = decodeInto(data, &Delegate{})
	case TypeCancelUnbondingDelegation:
		msg, err = decodeInto(data, &CancelUnbondingDelegation{})
	case TypeUndelegate:
		msg, err = decodeInto(data, &Undelegate{})
	case TypeBeginRedelegate:
		msg, err = decodeInto(data, &BeginRedelegate{})
	case TypeIBCTransfer:
		msg, err = decodeInto(data, &IBCTransfer{})
	case TypeGovVote, TypeGovVoteV1:
		msg, err = decodeInto(data, &GovVote{Type: head.Type})
	case TypeAuthzExec:
		msg, err = decodeInto(data, &AuthzExec{})
	case TypeAuthzGrant:
		msg, err = decodeGrant(data)
	case TypeAuthzRevoke:
		msg, err = decodeInto(data, &AuthzRevoke{})
	case TypeIBCClientUpdate:
		msg, err = decodeInto(data, &IBCClientUpdate{})
	default:
		return &Unknown{Type: head.Type}, true
	}
	if err != nil {
		return &Unknown{Type: head.Type, Err: fmt.Errorf("decode %s: %w", ShortName(head.Type), err)}, true
	}
	return msg, true
}

func decodeInto[T Message](data []byte, v T) (Message, error) {
	return v, json.Unmarshal(data, v)
}

func decodeGrant(data []byte) (Message, error) {
	var raw struct {
		Granter string `json:"granter"`
		Grantee string `json:"grantee"`
		Grant   struct {
			Authorization struct {
				Type string `json:"@type"`
			} `json:"authorization"`
			Expiration *string `json:"expiration"`
		} `json:"grant"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	g := &AuthzGrant{
		Granter:           raw.Granter,
		Grantee:           raw.Grantee,
		AuthorizationType: raw.Grant.Authorization.Type,
	}
	if raw.Grant.Expiration != nil {
		g.Expiration = *raw.Grant.Expiration
	}
	return g, nil
}
