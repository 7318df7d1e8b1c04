package trie

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/ainur-network/ainurchain/storage"
)

func TestTrieCommitFlushPersistsData(t *testing.T) {
	dir := t.TempDir()

	db1, err := storage.NewLevelDB(dir)
	require.NoError(t, err)

	tr, err := NewTrie(db1, nil)
	require.NoError(t, err)

	key := crypto.Keccak256([]byte("key"))
	value := []byte("value")

	require.NoError(t, tr.Update(key, value))
	root := tr.Commit()
	require.NotEmpty(t, root)

	db1.Close()

	db2, err := storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db2.Close()

	restored, err := NewTrie(db2, root)
	require.NoError(t, err)

	got, err := restored.Get(key)
	require.NoError(t, err)
	require.Equal(t, value, got)
}

func TestTrieMissingKeyReturnsNil(t *testing.T) {
	tr, err := NewTrie(storage.NewMemDB(), nil)
	require.NoError(t, err)

	got, err := tr.Get(crypto.Keccak256([]byte("absent")))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestTrieUpdateNilDeletes(t *testing.T) {
	tr, err := NewTrie(storage.NewMemDB(), nil)
	require.NoError(t, err)

	key := crypto.Keccak256([]byte("key"))
	require.NoError(t, tr.Update(key, []byte("value")))
	require.NoError(t, tr.Update(key, nil))

	got, err := tr.Get(key)
	require.NoError(t, err)
	require.Nil(t, got)
}
