package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"github.com/cipherstake/staking-ledger/internal/fhe"
	"github.com/cipherstake/staking-ledger/internal/types"
)

const EventCollection = "events"

// EventDocument is one entry of the durable ledger event log. The log is
// written in the same transaction as the balances it describes and is the
// source of truth for event consumers.
type EventDocument struct {
	ID          string `bson:"_id"` // uuid
	Type        string `bson:"type"`
	Account     string `bson:"account"`
	Amount      string `bson:"amount"`
	StakeCipher string `bson:"stake_cipher"` // account stake cipher after the operation
	Timestamp   int64  `bson:"timestamp"`    // Unix timestamp
}

func NewEventDocument(
	eventType types.EventType, account string, amount *uint256.Int, stakeCipher fhe.Handle,
) *EventDocument {
	return &EventDocument{
		ID:          uuid.New().String(),
		Type:        string(eventType),
		Account:     account,
		Amount:      amount.Dec(),
		StakeCipher: stakeCipher.Hex(),
		Timestamp:   time.Now().Unix(),
	}
}
