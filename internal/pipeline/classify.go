package pipeline

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dvloznov/cheqd-ledger/internal/chain"
	"github.com/dvloznov/cheqd-ledger/internal/ledger"
)

// Classifier applies the ledger effect of each message to the record of the
// transaction that carries it, from the point of view of Address.
type Classifier struct {
	Address string
	Unit    chain.Unit
}

// Apply mutates rec with the effect of msg. Unknown message kinds are ignored.
func (c *Classifier) Apply(rec *ledger.Record, tx *chain.Transaction, msg chain.Message) {
	switch m := msg.(type) {
	case *chain.BankSend:
		c.bankSend(rec, m)
	case *chain.WithdrawDelegatorReward:
		c.withdrawReward(rec, tx)
	case *chain.Delegate:
		c.delegate(rec, m)
	case *chain.CancelUnbondingDelegation:
		c.cancelUnbonding(rec, m)
	case *chain.Undelegate:
		c.undelegate(rec, tx, m)
	case *chain.BeginRedelegate:
		c.redelegate(rec, tx, m)
	case *chain.IBCTransfer:
		c.ibcTransfer(rec, m)
	case *chain.GovVote:
		c.vote(rec, m)
	case *chain.AuthzExec:
		c.authzExec(rec, tx, m)
	case *chain.AuthzGrant:
		c.authzGrant(rec, m)
	case *chain.AuthzRevoke:
		c.authzRevoke(rec, m)
	case *chain.IBCClientUpdate:
		// relayer bookkeeping, no ledger effect
	case *chain.Unknown:
		if m.Err != nil {
			degrade(rec, m.TypeURL())
		}
	}
}

func (c *Classifier) bankSend(rec *ledger.Record, m *chain.BankSend) {
	if m.From == "" || m.To == "" || len(m.Amount) == 0 {
		degrade(rec, m.TypeURL())
		return
	}
	rec.Senders.Add(m.From)
	rec.Recipients.Add(m.To)
	rec.Labels.Add(ledger.LabelTransfer)

	value, native := c.sumNative(m.Amount)
	switch {
	case native && m.From == c.Address:
		rec.Sent = c.amount(value)
	case native && m.To == c.Address:
		rec.Received = c.amount(value)
	default:
		rec.Description = fmt.Sprintf("Transfer of %s from %s to %s", c.describeCoins(m.Amount), m.From, m.To)
	}
}

func (c *Classifier) withdrawReward(rec *ledger.Record, tx *chain.Transaction) {
	rec.Labels.Add(ledger.LabelReward)
	if rec.Received == nil {
		rec.Received = c.amount(chain.RewardAmount(tx, c.Unit))
	}
	rec.Recipients.Add(c.Address)
}

func (c *Classifier) delegate(rec *ledger.Record, m *chain.Delegate) {
	if m.Amount == nil || m.Validator == "" {
		degrade(rec, m.TypeURL())
		return
	}
	c.stakeMove(rec, m.Validator)
	rec.Description = fmt.Sprintf("Delegated %s to %s", c.describeCoin(*m.Amount), m.Validator)
}

func (c *Classifier) cancelUnbonding(rec *ledger.Record, m *chain.CancelUnbondingDelegation) {
	if m.Amount == nil || m.Validator == "" {
		degrade(rec, m.TypeURL())
		return
	}
	c.stakeMove(rec, m.Validator)
	rec.Description = fmt.Sprintf("Cancelled unbonding of %s from %s", c.describeCoin(*m.Amount), m.Validator)
}

// stakeMove records a fee-only staking operation towards validator.
func (c *Classifier) stakeMove(rec *ledger.Record, validator string) {
	rec.Labels.Add(ledger.LabelCost)
	rec.ClearAmounts()
	rec.Senders.Add(c.Address)
	rec.Recipients.Reset(validator)
}

func (c *Classifier) undelegate(rec *ledger.Record, tx *chain.Transaction, m *chain.Undelegate) {
	if m.Amount == nil {
		degrade(rec, m.TypeURL())
		return
	}
	c.unbondingReward(rec, tx)
	rec.Recipients.Add(c.Address)
	rec.Description = fmt.Sprintf("Undelegated %s from %s (%s)%s",
		c.describeCoin(*m.Amount), orUnknown(m.Validator), status(tx), withdrawnSuffix(rec, tx))
}

func (c *Classifier) redelegate(rec *ledger.Record, tx *chain.Transaction, m *chain.BeginRedelegate) {
	if m.Amount == nil {
		degrade(rec, m.TypeURL())
		return
	}
	c.unbondingReward(rec, tx)
	rec.Recipients.Add(c.Address)
	rec.Description = fmt.Sprintf("Redelegated %s from %s to %s (%s)%s",
		c.describeCoin(*m.Amount), orUnknown(m.ValidatorSrc), orUnknown(m.ValidatorDst), status(tx), withdrawnSuffix(rec, tx))
}

// unbondingReward labels an undelegation or redelegation and recovers the
// rewards the chain paid out automatically. Only coin_received events that
// name the tracked address as receiver count. An amount already on the record
// is kept.
func (c *Classifier) unbondingReward(rec *ledger.Record, tx *chain.Transaction) {
	if !tx.Success {
		rec.Labels.Add(ledger.LabelCost)
		return
	}
	rec.Labels.Add(ledger.LabelReward)
	if rec.Received == nil {
		rec.Received = c.amount(chain.ReceivedAmount(tx, c.Address, c.Unit))
	}
}

func (c *Classifier) ibcTransfer(rec *ledger.Record, m *chain.IBCTransfer) {
	if m.Token == nil || m.Sender == "" || m.Receiver == "" {
		degrade(rec, m.TypeURL())
		return
	}
	rec.Labels.Add(ledger.LabelTransfer)

	value, native := c.Unit.Value(*m.Token)
	switch c.Address {
	case m.Sender:
		if native {
			rec.Sent = c.amount(value)
		}
		rec.Recipients.Add(m.Receiver)
		rec.Senders.Add(c.Address)
	case m.Receiver:
		if native {
			rec.Received = c.amount(value)
		}
		rec.Senders.Add(m.Sender)
		rec.Recipients.Add(c.Address)
	}
	if !native {
		rec.Description = fmt.Sprintf("IBC transfer of %s from %s to %s", c.describeCoin(*m.Token), m.Sender, m.Receiver)
	}
}

func (c *Classifier) vote(rec *ledger.Record, m *chain.GovVote) {
	rec.Labels.Add(ledger.LabelCost)
	rec.ClearAmounts()
	rec.Senders.Add(c.Address)
	if m.ProposalID == 0 {
		rec.Description = placeholder(m.TypeURL())
		return
	}
	rec.Description = fmt.Sprintf("Voted on proposal %d", m.ProposalID)
}

func (c *Classifier) authzExec(rec *ledger.Record, tx *chain.Transaction, m *chain.AuthzExec) {
	rec.Labels.Add(ledger.LabelAuthz)
	if !tx.Success || !containsRewardWithdrawal(m.Msgs) || rec.Received != nil {
		return
	}
	if received := c.amount(chain.ReceivedAmount(tx, c.Address, c.Unit)); received != nil {
		rec.Received = received
		rec.Labels.Add(ledger.LabelReward)
		rec.Recipients.Add(c.Address)
	}
}

func containsRewardWithdrawal(msgs chain.Messages) bool {
	for _, inner := range msgs {
		if _, ok := inner.(*chain.WithdrawDelegatorReward); ok {
			return true
		}
	}
	return false
}

func (c *Classifier) authzGrant(rec *ledger.Record, m *chain.AuthzGrant) {
	if m.Granter == "" || m.Grantee == "" {
		degrade(rec, m.TypeURL())
		return
	}
	rec.Labels.Add(ledger.LabelCost)
	rec.ClearAmounts()
	rec.Senders.Add(m.Granter)

	desc := fmt.Sprintf("Granted %s authorization to %s", chain.ShortName(m.AuthorizationType), m.Grantee)
	if m.Expiration != "" {
		if exp, err := chain.ParseTimestamp(m.Expiration); err == nil {
			desc += " until " + exp.Format("2006-01-02")
		}
	}
	rec.Description = desc
}

func (c *Classifier) authzRevoke(rec *ledger.Record, m *chain.AuthzRevoke) {
	if m.Granter == "" || m.Grantee == "" {
		degrade(rec, m.TypeURL())
		return
	}
	rec.Labels.Add(ledger.LabelCost)
	rec.ClearAmounts()
	rec.Senders.Add(m.Granter)
	rec.Description = fmt.Sprintf("Revoked %s authorization from %s", chain.ShortName(m.MsgTypeURL), m.Grantee)
}

// degrade marks a message whose fields could not be read as a fee-only cost.
func degrade(rec *ledger.Record, typeURL string) {
	rec.Labels.Add(ledger.LabelCost)
	rec.Description = placeholder(typeURL)
}

func placeholder(typeURL string) string {
	return fmt.Sprintf("%s transaction (details unavailable)", chain.ShortName(typeURL))
}

// amount converts base units to a display amount; zero yields nil.
func (c *Classifier) amount(base decimal.Decimal) *ledger.Amount {
	return ledger.NewAmount(c.Unit.ToDisplay(base), c.Unit.Symbol)
}

// sumNative adds up the coins in the native denomination.
func (c *Classifier) sumNative(coins chain.Coins) (decimal.Decimal, bool) {
	total, found := decimal.Zero, false
	for _, coin := range coins {
		if v, ok := c.Unit.Value(coin); ok {
			total = total.Add(v)
			found = true
		}
	}
	return total, found
}

func (c *Classifier) describeCoin(coin chain.Coin) string {
	if v, ok := c.Unit.Value(coin); ok {
		return ledger.FormatValue(c.Unit.ToDisplay(v)) + " " + c.Unit.Symbol
	}
	return coin.Amount + coin.Denom
}

func (c *Classifier) describeCoins(coins chain.Coins) string {
	if v, ok := c.sumNative(coins); ok {
		return ledger.FormatValue(c.Unit.ToDisplay(v)) + " " + c.Unit.Symbol
	}
	return c.describeCoin(coins[0])
}

// withdrawnSuffix describes the reward recorded on rec.
func withdrawnSuffix(rec *ledger.Record, tx *chain.Transaction) string {
	if !tx.Success || rec.Received == nil || !rec.Received.Value.IsPositive() {
		return ""
	}
	return fmt.Sprintf(" and withdrew %s %s in rewards", ledger.FormatValue(rec.Received.Value), rec.Received.Currency)
}

func status(tx *chain.Transaction) string {
	if tx.Success {
		return "succeeded"
	}
	return "failed"
}

func orUnknown(validator string) string {
	if validator == "" {
		return "unknown_validator"
	}
	return validator
}
