package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetPut(t *testing.T) {
	s := NewMemoryStore()

	assert.Equal(t, "fallback", s.Get("missing", "fallback"))

	require.NoError(t, s.Put("cp_status", "CONNECTED"))
	assert.Equal(t, "CONNECTED", s.Get("cp_status", ""))

	require.NoError(t, s.Put("cp_status", "DISCONNECTED"))
	assert.Equal(t, "DISCONNECTED", s.Get("cp_status", ""))
}

func TestMemoryStoreClear(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Put("meter_value", "5000"))
	require.NoError(t, s.Put("TransactionId", "42"))

	s.Clear()

	assert.Equal(t, "0", s.Get("meter_value", "0"))
	assert.Equal(t, "", s.Get("TransactionId", ""))
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chargepoint.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("conn_availability1", "Inoperative"))
	require.NoError(t, s.Put("WSURL", "ws://cs/"))
	require.NoError(t, s.Close())

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, "Inoperative", reopened.Get("conn_availability1", "Operative"))
	assert.Equal(t, "ws://cs/", reopened.Get("WSURL", ""))
	assert.Equal(t, "Operative", reopened.Get("conn_availability2", "Operative"))
}

func TestFileStoreCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "store.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put("CPID", "CP01"))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, "CP01", reopened.Get("CPID", ""))
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, "default", s.Get("anything", "default"))
}
