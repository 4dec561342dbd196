package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/circulation/pkg/logger"
)

func TestContextWithLoan(t *testing.T) {
	t.Parallel()

	ctx := logger.ContextWithLoan(context.Background(), "L1")
	id, ok := logger.LoanFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "L1", id)

	_, ok = logger.LoanFromContext(logger.ContextWithLoan(context.Background(), ""))
	assert.False(t, ok)
}

func TestLoanExtractor(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithOutput(buf),
		logger.WithContextExtractors(logger.LoanExtractor()),
	)

	ctx := logger.ContextWithLoan(context.Background(), "L1")
	log.InfoContext(ctx, "from context")
	log.InfoContext(ctx, "explicit", logger.LoanID("L1"))
	log.InfoContext(context.Background(), "untagged")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "L1", first["loan_id"])

	assert.Equal(t, 1, strings.Count(lines[1], `"loan_id"`))
	assert.NotContains(t, lines[2], "loan_id")
}
