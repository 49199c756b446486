package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cipherstake/staking-ledger/internal/db/model"
	"github.com/cipherstake/staking-ledger/internal/fhe"
)

func (db *Database) GetStake(ctx context.Context, account string) (*model.StakeDocument, error) {
	filter := bson.M{"_id": account}

	res := db.collection(model.StakeCollection).FindOne(ctx, filter)

	var stakeDoc model.StakeDocument
	if err := res.Decode(&stakeDoc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &NotFoundError{
				Key:     account,
				Message: "no stake record for account",
			}
		}
		return nil, err
	}

	return &stakeDoc, nil
}

// UpsertStake writes both representations of an account's balance
func (db *Database) UpsertStake(
	ctx context.Context, account string, amount *uint256.Int, cipher fhe.Handle,
) error {
	filter := bson.M{"_id": account}
	update := bson.M{
		"$set": bson.M{
			"amount":       amount.Dec(),
			"stake_cipher": cipher.Hex(),
			"updated_at":   time.Now().Unix(),
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := db.collection(model.StakeCollection).UpdateOne(ctx, filter, update, opts)
	return err
}

// SumStakes folds every stake record into one total and returns it together
// with the record count. Amounts are stored as decimal strings, so the sum
// happens client side rather than in an aggregation pipeline.
func (db *Database) SumStakes(ctx context.Context) (*uint256.Int, uint64, error) {
	cursor, err := db.collection(model.StakeCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	sum := uint256.NewInt(0)
	var count uint64
	for cursor.Next(ctx) {
		var stakeDoc model.StakeDocument
		if err := cursor.Decode(&stakeDoc); err != nil {
			return nil, 0, err
		}

		amount, err := stakeDoc.AmountUint256()
		if err != nil {
			return nil, 0, err
		}

		var overflow bool
		sum, overflow = new(uint256.Int).AddOverflow(sum, amount)
		if overflow {
			return nil, 0, fmt.Errorf("stake sum overflows uint256")
		}
		count++
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, err
	}

	return sum, count, nil
}
