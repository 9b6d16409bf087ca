package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketmind-ai/marketmind/internal/storage"
)

func TestLoad_MintsOnce(t *testing.T) {
	store := storage.New(t.TempDir())

	first, err := Load(store)
	require.NoError(t, err)
	assert.Len(t, first, 26) // ULID length

	second, err := Load(store)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoad_DistinctStores(t *testing.T) {
	a, err := Load(storage.New(t.TempDir()))
	require.NoError(t, err)
	b, err := Load(storage.New(t.TempDir()))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
