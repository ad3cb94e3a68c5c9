package chain

import "github.com/shopspring/decimal"

const (
	EventWithdrawRewards = "withdraw_rewards"
	EventCoinReceived    = "coin_received"

	AttrAmount   = "amount"
	AttrReceiver = "receiver"
)

// RewardAmount sums the amount attributes of every withdraw_rewards event in
// the transaction, in base units of u. It is zero for failed transactions.
func RewardAmount(tx *Transaction, u Unit) decimal.Decimal {
	total := decimal.Zero
	if tx == nil || !tx.Success {
		return total
	}
	for _, log := range tx.Logs {
		for _, ev := range log.Events {
			if ev.Type != EventWithdrawRewards {
				continue
			}
			for _, attr := range ev.Attributes {
				if attr.Key != AttrAmount {
					continue
				}
				if v, ok := SumDenom(attr.Value, u.Denom); ok {
					total = total.Add(v)
				}
			}
		}
	}
	return total
}

// ReceivedAmount sums the amounts of coin_received events addressed to
// address, in base units of u. An event counts only when its own attributes
// name address as receiver. With a single receiver attribute order is
// irrelevant; merged events attribute each amount to its nearest receiver.
func ReceivedAmount(tx *Transaction, address string, u Unit) decimal.Decimal {
	total := decimal.Zero
	if tx == nil || !tx.Success || address == "" {
		return total
	}
	for _, log := range tx.Logs {
		for _, ev := range log.Events {
			if ev.Type != EventCoinReceived {
				continue
			}
			if v, ok := receivedIn(ev, address, u); ok {
				total = total.Add(v)
			}
		}
	}
	return total
}

func receivedIn(ev Event, address string, u Unit) (decimal.Decimal, bool) {
	receivers := 0
	for _, attr := range ev.Attributes {
		if attr.Key == AttrReceiver {
			receivers++
		}
	}

	amount, found := decimal.Zero, false
	if receivers <= 1 {
		isReceiver := false
		for _, attr := range ev.Attributes {
			switch attr.Key {
			case AttrReceiver:
				isReceiver = isReceiver || attr.Value == address
			case AttrAmount:
				if v, ok := SumDenom(attr.Value, u.Denom); ok {
					amount = amount.Add(v)
					found = true
				}
			}
		}
		return amount, isReceiver && found
	}

	// Merged events carry several receiver/amount pairs; each amount belongs
	// to the closest receiver by position, preferring the one before it.
	for i, attr := range ev.Attributes {
		if attr.Key != AttrAmount || pairedReceiver(ev.Attributes, i) != address {
			continue
		}
		if v, ok := SumDenom(attr.Value, u.Denom); ok {
			amount = amount.Add(v)
			found = true
		}
	}
	return amount, found
}

func pairedReceiver(attrs Attributes, i int) string {
	before, after := -1, -1
	for j := i - 1; j >= 0; j-- {
		if attrs[j].Key == AttrReceiver {
			before = j
			break
		}
	}
	for j := i + 1; j < len(attrs); j++ {
		if attrs[j].Key == AttrReceiver {
			after = j
			break
		}
	}
	switch {
	case before >= 0 && (after < 0 || i-before <= after-i):
		return attrs[before].Value
	case after >= 0:
		return attrs[after].Value
	}
	return ""
}
