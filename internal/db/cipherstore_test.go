//go:build integration

package db_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherstake/staking-ledger/internal/fhe"
	"github.com/cipherstake/staking-ledger/testutil"
)

func TestCipherStore(t *testing.T) {
	ctx := t.Context()
	t.Cleanup(func() {
		resetDatabase(t)
	})

	t.Run("get unknown handle", func(t *testing.T) {
		_, err := testDB.GetCipher(ctx, testutil.RandomHandle())
		require.ErrorIs(t, err, fhe.ErrUnknownHandle)
	})

	t.Run("grant on unknown handle", func(t *testing.T) {
		err := testDB.GrantDecrypt(ctx, testutil.RandomHandle(), testutil.RandomAccountAddress())
		require.ErrorIs(t, err, fhe.ErrUnknownHandle)
	})

	t.Run("save and get", func(t *testing.T) {
		rec := &fhe.CipherRecord{
			Handle: testutil.RandomHandle(),
			Data:   []byte("serialized ciphertext"),
			Depth:  3,
			ACL:    []string{testutil.RandomAccountAddress()},
		}
		require.NoError(t, testDB.SaveCipher(ctx, rec))

		got, err := testDB.GetCipher(ctx, rec.Handle)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("save overwrites", func(t *testing.T) {
		rec := &fhe.CipherRecord{
			Handle: testutil.RandomHandle(),
			Data:   []byte{0x01},
			Depth:  1,
			ACL:    []string{},
		}
		require.NoError(t, testDB.SaveCipher(ctx, rec))

		rec.Data = []byte{0x02, 0x03}
		rec.Depth = 2
		require.NoError(t, testDB.SaveCipher(ctx, rec))

		got, err := testDB.GetCipher(ctx, rec.Handle)
		require.NoError(t, err)
		assert.Equal(t, rec, got)
	})

	t.Run("grant is idempotent", func(t *testing.T) {
		rec := &fhe.CipherRecord{
			Handle: testutil.RandomHandle(),
			Data:   []byte{0x01},
			Depth:  1,
		}
		require.NoError(t, testDB.SaveCipher(ctx, rec))

		principal := testutil.RandomAccountAddress()
		require.NoError(t, testDB.GrantDecrypt(ctx, rec.Handle, principal))
		require.NoError(t, testDB.GrantDecrypt(ctx, rec.Handle, principal))

		got, err := testDB.GetCipher(ctx, rec.Handle)
		require.NoError(t, err)
		assert.Equal(t, []string{principal}, got.ACL)
	})
}
