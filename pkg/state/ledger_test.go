package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRecordAndLookup(t *testing.T) {
	l := NewLedger()
	assert.False(t, l.HasReplied("t1"))

	l.RecordReplied("t1")
	assert.True(t, l.HasReplied("t1"))
	assert.False(t, l.HasReplied("t2"))

	// Recording twice keeps a single entry.
	l.RecordReplied("t1")
	assert.Equal(t, 1, l.Len())
}

func TestFileStoreMissingFileYieldsEmptyLedger(t *testing.T) {
	store := NewFileStore(t.TempDir())

	l, err := store.Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	l := NewLedger()
	l.RecordReplied("t1")
	l.RecordReplied("t2")
	require.NoError(t, store.Save("", l))

	reloaded, err := store.Load("")
	require.NoError(t, err)
	assert.True(t, reloaded.HasReplied("t1"))
	assert.True(t, reloaded.HasReplied("t2"))
	assert.Equal(t, 2, reloaded.Len())
}

func TestFileStorePerAccountFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	l := NewLedger()
	l.RecordReplied("t1")
	require.NoError(t, store.Save("alice@example.com", l))

	_, err := os.Stat(filepath.Join(dir, "state_alice_example_com.json"))
	require.NoError(t, err)

	// The other account's ledger stays empty.
	other, err := store.Load("bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, other.Len())

	reloaded, err := store.Load("alice@example.com")
	require.NoError(t, err)
	assert.True(t, reloaded.HasReplied("t1"))
}

func TestFileStoreSaveRewritesInFull(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	l := NewLedger()
	l.RecordReplied("t1")
	require.NoError(t, store.Save("", l))
	l.RecordReplied("t2")
	require.NoError(t, store.Save("", l))

	data, err := os.ReadFile(filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"replied_threads": ["t1", "t2"]}`, string(data))
}

func TestFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"), []byte("not json"), 0644))

	_, err := NewFileStore(dir).Load("")
	assert.Error(t, err)
}
