package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/circulation/pkg/audit"
)

type ctxKey string

func TestLogger_Log(t *testing.T) {
	t.Parallel()

	writer := audit.NewMemoryWriter()
	fixed := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	log := audit.NewLogger(writer,
		audit.WithClock(func() time.Time { return fixed }),
		audit.WithUserIDExtractor(func(ctx context.Context) (string, bool) {
			v, ok := ctx.Value(ctxKey("user")).(string)
			return v, ok
		}),
		audit.WithRequestIDExtractor(func(ctx context.Context) (string, bool) {
			v, ok := ctx.Value(ctxKey("request")).(string)
			return v, ok
		}),
	)

	ctx := context.WithValue(context.Background(), ctxKey("user"), "librarian-1")
	ctx = context.WithValue(ctx, ctxKey("request"), "req-42")

	err := log.Log(ctx, "loan.checkout",
		audit.WithResource("loan", "L1"),
		audit.WithMetadata("to", "ITEM_ON_LOAN"),
	)
	require.NoError(t, err)

	events := writer.Events()
	require.Len(t, events, 1)
	e := events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "loan.checkout", e.Action)
	assert.Equal(t, audit.ResultSuccess, e.Result)
	assert.Equal(t, "librarian-1", e.UserID)
	assert.Equal(t, "req-42", e.RequestID)
	assert.Equal(t, "loan", e.Resource)
	assert.Equal(t, "L1", e.ResourceID)
	assert.Equal(t, "ITEM_ON_LOAN", e.Metadata["to"])
	assert.Equal(t, fixed, e.CreatedAt)
}

func TestLogger_LogError(t *testing.T) {
	t.Parallel()

	writer := audit.NewMemoryWriter()
	log := audit.NewLogger(writer)

	err := log.LogError(context.Background(), "loan.extend", errors.New("limit reached"),
		audit.WithResource("loan", "L1"),
		audit.WithResult(audit.ResultFailure),
	)
	require.NoError(t, err)

	events := writer.ByResource("loan", "L1")
	require.Len(t, events, 1)
	assert.Equal(t, audit.ResultFailure, events[0].Result)
	assert.Equal(t, "limit reached", events[0].Error)
	assert.Empty(t, events[0].UserID)
}

func TestLogger_Validation(t *testing.T) {
	t.Parallel()

	writer := audit.NewMemoryWriter()
	log := audit.NewLogger(writer)

	err := log.Log(context.Background(), "")
	require.ErrorIs(t, err, audit.ErrEventValidation)
	assert.Empty(t, writer.Events())

	assert.Panics(t, func() { audit.NewLogger(nil) })
}

func TestLoanEventOptions(t *testing.T) {
	t.Parallel()

	writer := audit.NewMemoryWriter()
	log := audit.NewLogger(writer)

	require.NoError(t, log.Log(context.Background(), "loan.checkout",
		audit.WithLoan("L1"),
		audit.WithTransition("ITEM_AT_DESK", "ITEM_ON_LOAN"),
	))
	require.NoError(t, log.LogError(context.Background(), "loan.extend", errors.New("max extensions reached"),
		audit.WithLoan("L1"),
		audit.WithTransition("ITEM_ON_LOAN", ""),
		audit.WithRejection("Max extension count reached."),
	))

	events := writer.ByResource(audit.ResourceLoan, "L1")
	require.Len(t, events, 2)

	assert.Equal(t, audit.ResultSuccess, events[0].Result)
	assert.Equal(t, "ITEM_AT_DESK", events[0].Metadata["from"])
	assert.Equal(t, "ITEM_ON_LOAN", events[0].Metadata["to"])

	assert.Equal(t, audit.ResultFailure, events[1].Result)
	assert.Equal(t, "Max extension count reached.", events[1].Metadata["reason"])
	assert.NotContains(t, events[1].Metadata, "to")
}
