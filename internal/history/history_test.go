package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path)
	require.NoError(err)
	for i := 0; i < 5; i++ {
		require.NoError(store.Put(&Record{
			ID:        fmt.Sprintf("id-%d", i),
			Site:      "twitter",
			Status:    StatusOK,
			StartedAt: time.Now().UTC(),
			Elapsed:   time.Second,
		}))
	}

	records, err := store.List(2)
	require.NoError(err)
	if assert.Len(records, 2) {
		assert.Equal("id-4", records[0].ID)
		assert.Equal("id-3", records[1].ID)
		assert.Equal(time.Second, records[0].Elapsed)
	}
	require.NoError(store.Close())

	// Reopening keeps existing records
	store, err = Open(path)
	require.NoError(err)
	defer store.Close()
	records, err = store.List(0)
	require.NoError(err)
	assert.Len(records, 5)
}

func TestNilStore(t *testing.T) {
	assert := assert_.New(t)
	var store Store = NilStore{}
	assert.NoError(store.Put(&Record{ID: "x"}))
	records, err := store.List(10)
	assert.NoError(err)
	assert.Empty(records)
	assert.NoError(store.Close())
}
