package db

import (
	"context"
	"errors"
	"time"

	"github.com/holiman/uint256"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cipherstake/staking-ledger/internal/db/model"
	"github.com/cipherstake/staking-ledger/internal/fhe"
)

// GetTotals returns the global totals document. Before the first deposit no
// document exists and zero totals are returned.
func (db *Database) GetTotals(ctx context.Context) (*model.TotalsDocument, error) {
	var result model.TotalsDocument
	err := db.collection(model.TotalsCollection).
		FindOne(ctx, bson.M{"_id": model.GlobalTotalsID}).Decode(&result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &model.TotalsDocument{
			ID:    model.GlobalTotalsID,
			Total: "0",
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// UpsertTotals updates or inserts the global totals
func (db *Database) UpsertTotals(ctx context.Context, total *uint256.Int, cipher fhe.Handle) error {
	filter := bson.M{"_id": model.GlobalTotalsID}
	update := bson.M{
		"$set": bson.M{
			"total":        total.Dec(),
			"total_cipher": cipher.Hex(),
			"updated_at":   time.Now().Unix(),
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := db.collection(model.TotalsCollection).UpdateOne(ctx, filter, update, opts)
	return err
}
