package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/circulation/pkg/catalog"
	"github.com/dmitrymomot/circulation/pkg/circulation"
	"github.com/dmitrymomot/circulation/pkg/memstore"
)

const snapshot = `
locations:
  - pid: main
    pickup: true
  - pid: branch
    pickup: true
  - pid: depot
documents: [D1, D2]
items:
  - pid: I1
    document: D1
    location: main
  - pid: I2
    document: D1
    location: branch
  - pid: I3
    document: D2
    location: main
    no_circulate: true
    no_request: true
patrons: [P1]
users: [librarian]
`

func TestParse_Lookups(t *testing.T) {
	t.Parallel()

	c, err := catalog.Parse([]byte(snapshot))
	require.NoError(t, err)
	ctx := t.Context()

	ok, _ := c.ItemExists(ctx, "I1")
	assert.True(t, ok)
	ok, _ = c.ItemExists(ctx, "nope")
	assert.False(t, ok)

	ok, _ = c.PatronExists(ctx, "P1")
	assert.True(t, ok)
	ok, _ = c.DocumentExists(ctx, "D2")
	assert.True(t, ok)
	ok, _ = c.ValidateTransactionUser(ctx, "librarian")
	assert.True(t, ok)
	ok, _ = c.ValidateTransactionLocation(ctx, "depot")
	assert.True(t, ok)

	loc, err := c.ItemLocation(ctx, "I2")
	require.NoError(t, err)
	assert.Equal(t, "branch", loc)

	_, err = c.ItemLocation(ctx, "nope")
	assert.Error(t, err)

	assert.True(t, c.ItemCanCirculate("I1"))
	assert.False(t, c.ItemCanCirculate("I3"))
	assert.Equal(t, []string{"I1", "I2"}, c.Items("D1"))
}

func TestCatalog_PickupLocations(t *testing.T) {
	t.Parallel()

	c, err := catalog.Parse([]byte(snapshot))
	require.NoError(t, err)

	ok, _ := c.ValidatePickupTransactionLocations(t.Context(), &circulation.Loan{PickupLocationPID: "main"}, circulation.StateItemAtDesk)
	assert.True(t, ok)
	ok, _ = c.ValidatePickupTransactionLocations(t.Context(), &circulation.Loan{PickupLocationPID: "depot"}, circulation.StateItemAtDesk)
	assert.False(t, ok)
}

func TestCatalog_CanBeRequested(t *testing.T) {
	t.Parallel()

	c, err := catalog.Parse([]byte(snapshot))
	require.NoError(t, err)

	assert.True(t, c.CanBeRequested(&circulation.Loan{ItemPID: "I1"}))
	assert.False(t, c.CanBeRequested(&circulation.Loan{ItemPID: "I3"}))
	assert.True(t, c.CanBeRequested(&circulation.Loan{DocumentPID: "D1"}))
	assert.False(t, c.CanBeRequested(&circulation.Loan{DocumentPID: "D2"}))
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	_, err := catalog.Parse([]byte("items: [:"))
	assert.ErrorIs(t, err, catalog.ErrFailedToParseCatalog)

	_, err = catalog.Parse([]byte("items:\n  - pid: I1\n    location: nowhere\n"))
	assert.ErrorIs(t, err, catalog.ErrInvalidCatalog)
}

func TestLoad_Reload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(snapshot), 0o600))

	c, err := catalog.Load(path)
	require.NoError(t, err)

	changed, err := c.Reload()
	require.NoError(t, err)
	assert.False(t, changed)

	moved := []byte("locations:\n  - pid: main\n  - pid: branch\nitems:\n  - pid: I1\n    location: branch\n")
	require.NoError(t, os.WriteFile(path, moved, 0o600))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	changed, err = c.Reload()
	require.NoError(t, err)
	assert.True(t, changed)

	loc, err := c.ItemLocation(t.Context(), "I1")
	require.NoError(t, err)
	assert.Equal(t, "branch", loc)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := catalog.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, catalog.ErrFailedToReadCatalog)
}

func TestValidators_WithEngine(t *testing.T) {
	t.Parallel()

	c, err := catalog.Parse([]byte(snapshot))
	require.NoError(t, err)

	store := memstore.New()
	policies := circulation.NewDefaultPolicies(circulation.PolicyConfig{
		LoanDuration:      14 * 24 * time.Hour,
		ExtensionDuration: 7 * 24 * time.Hour,
		MaxExtensions:     2,
		ExtendFromEndDate: true,
	})
	c.ApplyPolicies(&policies)

	engine, err := circulation.NewEngine(c.Validators(store), policies, store)
	require.NoError(t, err)

	ctx := context.Background()
	loan := circulation.NewLoan()
	require.NoError(t, store.Save(ctx, loan))

	res, err := engine.Resolve(ctx, loan, circulation.TriggerRequest, circulation.Payload{
		DocumentPID:            "D1",
		PatronPID:              "P1",
		TransactionLocationPID: "main",
		TransactionUserPID:     "librarian",
		PickupLocationPID:      "main",
	})
	require.NoError(t, err)
	assert.Equal(t, circulation.StatePending, res.To)
	assert.Equal(t, "I1", res.Loan.ItemPID, "first available item of the document is attached")
}
