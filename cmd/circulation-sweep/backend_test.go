package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/circulation/pkg/catalog"
	"github.com/dmitrymomot/circulation/pkg/logger"
	"github.com/dmitrymomot/circulation/pkg/memstore"
	"github.com/dmitrymomot/circulation/pkg/searchindex"
)

func TestOpenBackend_Memory(t *testing.T) {
	t.Parallel()

	be, err := openBackend(t.Context(), appConfig{StoreBackend: backendMemory}, logger.Discard())
	require.NoError(t, err)
	defer be.close()

	assert.NotNil(t, be.store)
	assert.NotNil(t, be.lister)
	assert.NotNil(t, be.availability)
	assert.Nil(t, be.locker)
	assert.Nil(t, be.audit)
	assert.Empty(t, be.checks)
}

func TestOpenBackend_Unknown(t *testing.T) {
	t.Parallel()

	_, err := openBackend(t.Context(), appConfig{StoreBackend: "sqlite"}, logger.Discard())
	assert.ErrorContains(t, err, `unknown store backend "sqlite"`)
}

func TestBackend_UseIndex(t *testing.T) {
	t.Parallel()

	client, err := opensearch.NewClient(opensearch.Config{Addresses: []string{"http://127.0.0.1:9200"}})
	require.NoError(t, err)
	index := searchindex.New(client, "loans")

	t.Run("writes only", func(t *testing.T) {
		t.Parallel()
		primary := memstore.New()
		be := &backend{store: primary, availability: primary}
		be.useIndex(index, false)

		assert.IsType(t, &searchindex.WriteThrough{}, be.store)
		assert.Same(t, primary, be.availability)
	})

	t.Run("reads from index", func(t *testing.T) {
		t.Parallel()
		primary := memstore.New()
		be := &backend{store: primary, availability: primary}
		be.useIndex(index, true)

		assert.IsType(t, &searchindex.WriteThrough{}, be.store)
		assert.Same(t, index, be.availability)
	})
}

func TestBackendClose_ReverseOrder(t *testing.T) {
	t.Parallel()

	var order []int
	be := &backend{}
	for i := range 3 {
		be.closers = append(be.closers, func(context.Context) { order = append(order, i) })
	}
	be.close()
	assert.Equal(t, []int{2, 1, 0}, order)
}

func TestWatchCatalog_StopsOnCancel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("locations:\n  - pid: main\n    pickup: true\n"), 0o600))
	cat, err := catalog.Load(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- watchCatalog(ctx, cat, 5*time.Millisecond, logger.Discard()) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watchCatalog did not stop")
	}
}
