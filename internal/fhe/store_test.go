package fhe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore(t *testing.T) {
	ctx := t.Context()
	store := NewMemStore()

	h, err := HandleFromHex("0x1111111111111111111111111111111111111111111111111111111111111111")
	require.NoError(t, err)

	t.Run("get unknown handle", func(t *testing.T) {
		_, err := store.GetCipher(ctx, h)
		assert.ErrorIs(t, err, ErrUnknownHandle)
	})
	t.Run("grant on unknown handle", func(t *testing.T) {
		err := store.GrantDecrypt(ctx, h, "somebody")
		assert.ErrorIs(t, err, ErrUnknownHandle)
	})
	t.Run("save and get", func(t *testing.T) {
		err := store.SaveCipher(ctx, &CipherRecord{
			Handle: h,
			Data:   []byte{1, 2, 3},
			Depth:  1,
		})
		require.NoError(t, err)

		rec, err := store.GetCipher(ctx, h)
		require.NoError(t, err)
		assert.Equal(t, h, rec.Handle)
		assert.Equal(t, []byte{1, 2, 3}, rec.Data)
		assert.Equal(t, int64(1), rec.Depth)
		assert.Empty(t, rec.ACL)
	})
	t.Run("grant is idempotent", func(t *testing.T) {
		const principal = "0xAABB"

		require.NoError(t, store.GrantDecrypt(ctx, h, principal))
		require.NoError(t, store.GrantDecrypt(ctx, h, principal))

		rec, err := store.GetCipher(ctx, h)
		require.NoError(t, err)
		assert.Equal(t, []string{principal}, rec.ACL)
	})
	t.Run("returned record is a copy", func(t *testing.T) {
		rec, err := store.GetCipher(ctx, h)
		require.NoError(t, err)

		rec.Data[0] = 42
		rec.ACL[0] = "tampered"

		fresh, err := store.GetCipher(ctx, h)
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, fresh.Data)
		assert.NotEqual(t, "tampered", fresh.ACL[0])
	})
	t.Run("save overwrites", func(t *testing.T) {
		err := store.SaveCipher(ctx, &CipherRecord{
			Handle: h,
			Data:   []byte{9},
			Depth:  7,
		})
		require.NoError(t, err)

		rec, err := store.GetCipher(ctx, h)
		require.NoError(t, err)
		assert.Equal(t, int64(7), rec.Depth)
		assert.Empty(t, rec.ACL)
	})
}
