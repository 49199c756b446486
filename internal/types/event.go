package types

// Enum values for ledger events. Deposit and withdraw events carry the
// account and the plaintext amount: the amount itself is not confidential at
// the protocol layer, only the running balances are.
type EventType string

func (e EventType) String() string {
	return string(e)
}

const (
	EventDepositType  EventType = "ledger.v1.EventDeposit"
	EventWithdrawType EventType = "ledger.v1.EventWithdraw"
)
