package db

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cipherstake/staking-ledger/internal/db/model"
	"github.com/cipherstake/staking-ledger/internal/fhe"
)

// SaveCipher upserts the ciphertext record keyed by its handle. Called with a
// transaction context the write joins the surrounding ledger transaction.
func (db *Database) SaveCipher(ctx context.Context, rec *fhe.CipherRecord) error {
	doc := model.NewCiphertextDocument(rec)
	filter := bson.M{"_id": doc.Handle}
	update := bson.M{
		"$set": bson.M{
			"data":  doc.Data,
			"depth": doc.Depth,
			"acl":   doc.ACL,
		},
	}
	opts := options.Update().SetUpsert(true)

	_, err := db.collection(model.CiphertextCollection).UpdateOne(ctx, filter, update, opts)
	return err
}

func (db *Database) GetCipher(ctx context.Context, h fhe.Handle) (*fhe.CipherRecord, error) {
	res := db.collection(model.CiphertextCollection).FindOne(ctx, bson.M{"_id": h.Hex()})

	var doc model.CiphertextDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", fhe.ErrUnknownHandle, h)
		}
		return nil, err
	}

	return doc.ToCipherRecord()
}

// GrantDecrypt appends principal to the handle's ACL. $addToSet keeps the
// grant idempotent.
func (db *Database) GrantDecrypt(ctx context.Context, h fhe.Handle, principal string) error {
	filter := bson.M{"_id": h.Hex()}
	update := bson.M{"$addToSet": bson.M{"acl": principal}}

	res, err := db.collection(model.CiphertextCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", fhe.ErrUnknownHandle, h)
	}
	return nil
}
