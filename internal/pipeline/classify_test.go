package pipeline

import (
	"errors"
	"testing"

	"github.com/dvloznov/cheqd-ledger/internal/chain"
	"github.com/dvloznov/cheqd-ledger/internal/ledger"
)

func TestClassifyBankSend(t *testing.T) {
	tests := []struct {
		name          string
		msg           *chain.BankSend
		wantSent      string
		wantReceived  string
		wantDesc      string
		wantSenders   string
		wantRecipient string
	}{
		{
			name:          "outgoing",
			msg:           &chain.BankSend{From: me, To: you, Amount: chain.Coins{*ncheq("5000000000")}},
			wantSent:      "5.0",
			wantSenders:   me,
			wantRecipient: you,
		},
		{
			name:          "incoming",
			msg:           &chain.BankSend{From: you, To: me, Amount: chain.Coins{*ncheq("1500000")}},
			wantReceived:  "0.0015",
			wantSenders:   you,
			wantRecipient: me,
		},
		{
			name:          "third party",
			msg:           &chain.BankSend{From: you, To: "cheqd1other", Amount: chain.Coins{*ncheq("2000000000")}},
			wantDesc:      "Transfer of 2.0 CHEQ from cheqd1you to cheqd1other",
			wantSenders:   you,
			wantRecipient: "cheqd1other",
		},
		{
			name:          "foreign denomination",
			msg:           &chain.BankSend{From: me, To: you, Amount: chain.Coins{{Denom: "uatom", Amount: "7"}}},
			wantDesc:      "Transfer of 7uatom from cheqd1me to cheqd1you",
			wantSenders:   me,
			wantRecipient: you,
		},
	}

	c := &Classifier{Address: me, Unit: chain.CHEQ}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestRecord()
			c.Apply(rec, tx("H", true), tt.msg)

			if got := value(rec.Sent); got != tt.wantSent {
				t.Errorf("Sent = %q, want %q", got, tt.wantSent)
			}
			if got := value(rec.Received); got != tt.wantReceived {
				t.Errorf("Received = %q, want %q", got, tt.wantReceived)
			}
			if rec.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", rec.Description, tt.wantDesc)
			}
			if rec.Senders.String() != tt.wantSenders || rec.Recipients.String() != tt.wantRecipient {
				t.Errorf("parties = %q -> %q", rec.Senders, rec.Recipients)
			}
			if !rec.Labels.Has(ledger.LabelTransfer) {
				t.Errorf("Labels = %q, want transfer", rec.Labels)
			}
		})
	}
}

func TestClassifyRewardExclusivity(t *testing.T) {
	withdraw := &chain.WithdrawDelegatorReward{Delegator: me, Validator: validator}
	txn := tx("R", true, withdraw, &chain.WithdrawDelegatorReward{Delegator: me, Validator: "cheqdvaloper1b"})
	txn.Logs = chain.EventLogs{
		{Events: chain.Events{event(chain.EventWithdrawRewards, "amount", "100000000ncheq", "validator", validator)}},
		{Events: chain.Events{event(chain.EventWithdrawRewards, "amount", "250000000ncheq", "validator", "cheqdvaloper1b")}},
	}

	rec, _, err := newTestAssembler().Assemble(txn)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if got := value(rec.Received); got != "0.35" {
		t.Errorf("Received = %q, want 0.35", got)
	}
	if rec.Labels.String() != "reward" || rec.Recipients.String() != me {
		t.Errorf("labels/recipients = %q / %q", rec.Labels, rec.Recipients)
	}
}

func TestClassifyStaking(t *testing.T) {
	rewardEvent := event(chain.EventCoinReceived, "receiver", me, "amount", "3000000ncheq")
	foreignEvent := event(chain.EventCoinReceived, "receiver", "cheqd1module", "amount", "10000000000ncheq")

	tests := []struct {
		name          string
		success       bool
		preset        string
		msg           chain.Message
		events        []chain.Event
		wantLabels    string
		wantReceived  string
		wantRecipient string
		wantDesc      string
	}{
		{
			name:          "delegate clears amounts",
			success:       true,
			preset:        "9",
			msg:           &chain.Delegate{Delegator: me, Validator: validator, Amount: ncheq("10000000000")},
			wantLabels:    "cost",
			wantRecipient: validator,
			wantDesc:      "Delegated 10.0 CHEQ to cheqdvaloper1val",
		},
		{
			name:          "cancel unbonding",
			success:       true,
			preset:        "9",
			msg:           &chain.CancelUnbondingDelegation{Delegator: me, Validator: validator, Amount: ncheq("500000000")},
			wantLabels:    "cost",
			wantRecipient: validator,
			wantDesc:      "Cancelled unbonding of 0.5 CHEQ from cheqdvaloper1val",
		},
		{
			name:          "undelegate with reward",
			success:       true,
			msg:           &chain.Undelegate{Delegator: me, Validator: validator, Amount: ncheq("1000000000")},
			events:        []chain.Event{rewardEvent, foreignEvent},
			wantLabels:    "reward",
			wantReceived:  "0.003",
			wantRecipient: me,
			wantDesc:      "Undelegated 1.0 CHEQ from cheqdvaloper1val (succeeded) and withdrew 0.003 CHEQ in rewards",
		},
		{
			name:          "undelegate keeps co-located withdrawal",
			success:       true,
			preset:        "2.0",
			msg:           &chain.Undelegate{Delegator: me, Validator: validator, Amount: ncheq("1000000000")},
			events:        []chain.Event{event(chain.EventCoinReceived, "receiver", me, "amount", "3000000000ncheq")},
			wantLabels:    "reward",
			wantReceived:  "2.0",
			wantRecipient: me,
			wantDesc:      "Undelegated 1.0 CHEQ from cheqdvaloper1val (succeeded) and withdrew 2.0 CHEQ in rewards",
		},
		{
			name:          "redelegate keeps co-located withdrawal",
			success:       true,
			preset:        "2.0",
			msg:           &chain.BeginRedelegate{Delegator: me, ValidatorSrc: validator, ValidatorDst: "cheqdvaloper1dst", Amount: ncheq("2000000000")},
			events:        []chain.Event{event(chain.EventCoinReceived, "receiver", me, "amount", "3000000000ncheq")},
			wantLabels:    "reward",
			wantReceived:  "2.0",
			wantRecipient: me,
			wantDesc:      "Redelegated 2.0 CHEQ from cheqdvaloper1val to cheqdvaloper1dst (succeeded) and withdrew 2.0 CHEQ in rewards",
		},
		{
			name:          "undelegate failed",
			success:       false,
			msg:           &chain.Undelegate{Delegator: me, Validator: validator, Amount: ncheq("1000000000")},
			events:        []chain.Event{rewardEvent},
			wantLabels:    "cost",
			wantRecipient: me,
			wantDesc:      "Undelegated 1.0 CHEQ from cheqdvaloper1val (failed)",
		},
		{
			name:          "redelegate scoped to receiver",
			success:       true,
			msg:           &chain.BeginRedelegate{Delegator: me, ValidatorSrc: validator, ValidatorDst: "cheqdvaloper1dst", Amount: ncheq("2000000000")},
			events:        []chain.Event{foreignEvent, rewardEvent, rewardEvent},
			wantLabels:    "reward",
			wantReceived:  "0.006",
			wantRecipient: me,
			wantDesc:      "Redelegated 2.0 CHEQ from cheqdvaloper1val to cheqdvaloper1dst (succeeded) and withdrew 0.006 CHEQ in rewards",
		},
		{
			name:          "redelegate missing validators",
			success:       true,
			msg:           &chain.BeginRedelegate{Delegator: me, Amount: ncheq("2000000000")},
			wantLabels:    "reward",
			wantRecipient: me,
			wantDesc:      "Redelegated 2.0 CHEQ from unknown_validator to unknown_validator (succeeded)",
		},
		{
			name:       "redelegate missing amount degrades",
			success:    true,
			msg:        &chain.BeginRedelegate{Delegator: me, ValidatorSrc: validator},
			wantLabels: "cost",
			wantDesc:   "MsgBeginRedelegate transaction (details unavailable)",
		},
	}

	c := &Classifier{Address: me, Unit: chain.CHEQ}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := tx("S", tt.success, tt.msg)
			txn.Logs = logsOf(tt.events...)
			rec := newTestRecord()
			if tt.preset != "" {
				rec.Received = &ledger.Amount{Value: dec(tt.preset), Currency: "CHEQ"}
			}

			c.Apply(rec, txn, tt.msg)

			if rec.Labels.String() != tt.wantLabels {
				t.Errorf("Labels = %q, want %q", rec.Labels, tt.wantLabels)
			}
			if got := value(rec.Received); got != tt.wantReceived {
				t.Errorf("Received = %q, want %q", got, tt.wantReceived)
			}
			if rec.Recipients.String() != tt.wantRecipient {
				t.Errorf("Recipients = %q, want %q", rec.Recipients, tt.wantRecipient)
			}
			if rec.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", rec.Description, tt.wantDesc)
			}
		})
	}
}

func TestClassifyIBCTransfer(t *testing.T) {
	tests := []struct {
		name         string
		msg          *chain.IBCTransfer
		wantSent     string
		wantReceived string
		wantSender   string
		wantRecv     string
	}{
		{
			name:       "outgoing",
			msg:        &chain.IBCTransfer{Sender: me, Receiver: "osmo1x", Token: ncheq("3000000000")},
			wantSent:   "3.0",
			wantSender: me,
			wantRecv:   "osmo1x",
		},
		{
			name:         "incoming",
			msg:          &chain.IBCTransfer{Sender: "osmo1x", Receiver: me, Token: ncheq("3000000000")},
			wantReceived: "3.0",
			wantSender:   "osmo1x",
			wantRecv:     me,
		},
	}

	c := &Classifier{Address: me, Unit: chain.CHEQ}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newTestRecord()
			c.Apply(rec, tx("I", true), tt.msg)
			if value(rec.Sent) != tt.wantSent || value(rec.Received) != tt.wantReceived {
				t.Errorf("amounts = %q/%q, want %q/%q", value(rec.Sent), value(rec.Received), tt.wantSent, tt.wantReceived)
			}
			if rec.Senders.String() != tt.wantSender || rec.Recipients.String() != tt.wantRecv {
				t.Errorf("parties = %q -> %q", rec.Senders, rec.Recipients)
			}
			if rec.Labels.String() != "transfer" {
				t.Errorf("Labels = %q", rec.Labels)
			}
		})
	}
}

func TestClassifyVoteClearsCoLocatedAmounts(t *testing.T) {
	c := &Classifier{Address: me, Unit: chain.CHEQ}
	rec := newTestRecord()
	txn := tx("V", true)

	c.Apply(rec, txn, &chain.BankSend{From: you, To: me, Amount: chain.Coins{*ncheq("1000000000")}})
	c.Apply(rec, txn, &chain.GovVote{Voter: me, ProposalID: 12})

	if rec.Received != nil || rec.Sent != nil {
		t.Errorf("vote did not clear amounts: %+v", rec)
	}
	if !rec.Labels.Has(ledger.LabelCost) {
		t.Errorf("Labels = %q, want cost", rec.Labels)
	}
	if rec.Description != "Voted on proposal 12" {
		t.Errorf("Description = %q", rec.Description)
	}
}

func TestClassifyAuthz(t *testing.T) {
	claim := &chain.AuthzExec{Grantee: "cheqd1bot", Msgs: chain.Messages{
		&chain.WithdrawDelegatorReward{Delegator: me, Validator: validator},
	}}
	other := &chain.AuthzExec{Grantee: "cheqd1bot", Msgs: chain.Messages{
		&chain.Delegate{Delegator: me, Validator: validator, Amount: ncheq("1")},
	}}
	received := []chain.Event{event(chain.EventCoinReceived, "amount", "42000000ncheq", "receiver", me)}

	tests := []struct {
		name         string
		success      bool
		msg          chain.Message
		events       []chain.Event
		wantLabels   string
		wantReceived string
		wantDesc     string
		wantSenders  string
	}{
		{
			name:         "exec reward claim",
			success:      true,
			msg:          claim,
			events:       received,
			wantLabels:   "authz,reward",
			wantReceived: "0.042",
		},
		{
			name:       "exec without matching receiver",
			success:    true,
			msg:        claim,
			events:     []chain.Event{event(chain.EventCoinReceived, "amount", "42000000ncheq", "receiver", you)},
			wantLabels: "authz",
		},
		{
			name:       "exec of other messages",
			success:    true,
			msg:        other,
			events:     received,
			wantLabels: "authz",
		},
		{
			name:       "exec failed",
			success:    false,
			msg:        claim,
			events:     received,
			wantLabels: "authz",
		},
		{
			name:        "grant with expiration",
			success:     true,
			msg:         &chain.AuthzGrant{Granter: me, Grantee: "cheqd1bot", AuthorizationType: "/cosmos.authz.v1beta1.GenericAuthorization", Expiration: "2025-06-30T00:00:00Z"},
			wantLabels:  "cost",
			wantDesc:    "Granted GenericAuthorization authorization to cheqd1bot until 2025-06-30",
			wantSenders: me,
		},
		{
			name:        "grant without expiration",
			success:     true,
			msg:         &chain.AuthzGrant{Granter: me, Grantee: "cheqd1bot", AuthorizationType: "/cosmos.staking.v1beta1.StakeAuthorization"},
			wantLabels:  "cost",
			wantDesc:    "Granted StakeAuthorization authorization to cheqd1bot",
			wantSenders: me,
		},
		{
			name:        "revoke",
			success:     true,
			msg:         &chain.AuthzRevoke{Granter: me, Grantee: "cheqd1bot", MsgTypeURL: chain.TypeWithdrawDelegatorReward},
			wantLabels:  "cost",
			wantDesc:    "Revoked MsgWithdrawDelegatorReward authorization from cheqd1bot",
			wantSenders: me,
		},
		{
			name:       "grant missing granter degrades",
			success:    true,
			msg:        &chain.AuthzGrant{Grantee: "cheqd1bot"},
			wantLabels: "cost",
			wantDesc:   "MsgGrant transaction (details unavailable)",
		},
	}

	c := &Classifier{Address: me, Unit: chain.CHEQ}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := tx("Z", tt.success, tt.msg)
			txn.Logs = logsOf(tt.events...)
			rec := newTestRecord()
			c.Apply(rec, txn, tt.msg)

			if rec.Labels.String() != tt.wantLabels {
				t.Errorf("Labels = %q, want %q", rec.Labels, tt.wantLabels)
			}
			if got := value(rec.Received); got != tt.wantReceived {
				t.Errorf("Received = %q, want %q", got, tt.wantReceived)
			}
			if rec.Description != tt.wantDesc {
				t.Errorf("Description = %q, want %q", rec.Description, tt.wantDesc)
			}
			if rec.Senders.String() != tt.wantSenders {
				t.Errorf("Senders = %q, want %q", rec.Senders, tt.wantSenders)
			}
		})
	}
}

func TestClassifyUnknown(t *testing.T) {
	c := &Classifier{Address: me, Unit: chain.CHEQ}

	rec := newTestRecord()
	c.Apply(rec, tx("U", true), &chain.Unknown{Type: "/cosmwasm.wasm.v1.MsgExecuteContract"})
	if len(rec.Labels) != 0 || rec.Description != "" {
		t.Errorf("unknown message changed the record: %+v", rec)
	}

	rec = newTestRecord()
	c.Apply(rec, tx("U", true), &chain.Unknown{Type: chain.TypeDelegate, Err: errors.New("bad body")})
	if rec.Labels.String() != "cost" || rec.Description != "MsgDelegate transaction (details unavailable)" {
		t.Errorf("undecodable message = %q / %q", rec.Labels, rec.Description)
	}
}
