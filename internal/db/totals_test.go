//go:build integration

package db_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherstake/staking-ledger/internal/db/model"
	"github.com/cipherstake/staking-ledger/testutil"
)

func TestTotals(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})

	t.Run("zero before first write", func(t *testing.T) {
		doc, err := testDB.GetTotals(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.GlobalTotalsID, doc.ID)

		total, err := doc.TotalUint256()
		require.NoError(t, err)
		assert.True(t, total.IsZero())

		cipher, err := doc.CipherHandle()
		require.NoError(t, err)
		assert.True(t, cipher.IsZero())
	})

	t.Run("upsert and get", func(t *testing.T) {
		total := uint256.NewInt(7_000_000)
		cipher := testutil.RandomHandle()

		err := testDB.UpsertTotals(ctx, total, cipher)
		require.NoError(t, err)

		doc, err := testDB.GetTotals(ctx)
		require.NoError(t, err)
		assert.NotZero(t, doc.UpdatedAt)

		gotTotal, err := doc.TotalUint256()
		require.NoError(t, err)
		assert.Equal(t, total, gotTotal)

		gotCipher, err := doc.CipherHandle()
		require.NoError(t, err)
		assert.Equal(t, cipher, gotCipher)
	})
}
