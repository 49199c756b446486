package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cipherstake/staking-ledger/internal/config"
	"github.com/cipherstake/staking-ledger/internal/db"
	"github.com/cipherstake/staking-ledger/internal/db/model"
	"github.com/cipherstake/staking-ledger/pkg"
)

func DumpEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump-events [account]",
		Short: "Dump the durable ledger event log as JSON lines, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE:  dumpEvents,
	}

	cmd.Flags().Int64("limit", 100, "maximum number of events to dump")

	return cmd
}

// eventLine is the printable form of a log entry. The stored document only
// carries bson tags.
type eventLine struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Account     string `json:"account"`
	Amount      string `json:"amount"`
	StakeCipher string `json:"stake_cipher"`
	Timestamp   int64  `json:"timestamp"`
}

func dumpEvents(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.New(GetConfigPath())
	if err != nil {
		return err
	}

	database, err := db.New(ctx, cfg.Db)
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt64("limit")
	if err != nil {
		return err
	}

	var events []model.EventDocument
	if len(args) == 1 {
		account, err := pkg.NormalizeAccountAddress(args[0])
		if err != nil {
			return err
		}
		events, err = database.GetEventsByAccount(ctx, account, limit)
		if err != nil {
			return err
		}
	} else {
		events, err = database.GetRecentEvents(ctx, limit)
		if err != nil {
			return err
		}
	}

	for _, ev := range events {
		buff, err := json.Marshal(eventLine{
			ID:          ev.ID,
			Type:        ev.Type,
			Account:     ev.Account,
			Amount:      ev.Amount,
			StakeCipher: ev.StakeCipher,
			Timestamp:   ev.Timestamp,
		})
		if err != nil {
			return err
		}
		fmt.Println(string(buff))
	}

	return nil
}
