package model

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cipherstake/staking-ledger/internal/config"
)

const setupTimeout = 30 * time.Second

var collections = map[string][]mongo.IndexModel{
	StakeCollection:      {},
	TotalsCollection:     {},
	CiphertextCollection: {},
	EventCollection: {
		{Keys: bson.D{{Key: "account", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	},
}

// Setup creates the ledger collections and their indexes. Safe to run on
// every start; existing collections are left untouched. Collections must
// exist up front so the first deposit can write them inside a transaction.
func Setup(ctx context.Context, cfg *config.DbConfig) error {
	clientOps := options.Client().ApplyURI(cfg.Address)
	if cfg.Username != "" {
		credential := options.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		}
		clientOps = clientOps.SetAuth(credential)
	}

	ctx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOps)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect from mongodb after setup")
		}
	}()

	database := client.Database(cfg.DbName)
	existing, err := database.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return err
	}

	for name, indexes := range collections {
		if !slices.Contains(existing, name) {
			if err := database.CreateCollection(ctx, name); err != nil {
				return err
			}
		}
		if len(indexes) == 0 {
			continue
		}
		if _, err := database.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return err
		}
	}

	return nil
}
