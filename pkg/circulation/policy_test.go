package circulation_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/circulation/pkg/circulation"
)

func TestNewDefaultPolicies(t *testing.T) {
	t.Parallel()

	p := circulation.NewDefaultPolicies(circulation.PolicyConfig{
		LoanDuration:      14 * 24 * time.Hour,
		MaxLoanDuration:   30 * 24 * time.Hour,
		ExtensionDuration: 7 * 24 * time.Hour,
		MaxExtensions:     3,
		ExtendFromEndDate: true,
	})
	require.NoError(t, p.Validate())

	loan := &circulation.Loan{TransactionDate: day0}
	start, end := p.Checkout.DurationDefault(loan)
	assert.Equal(t, day0, start)
	assert.Equal(t, date(2024, 1, 15), end)

	assert.True(t, p.Checkout.DurationValidate(loan, day0, date(2024, 1, 31)))
	assert.False(t, p.Checkout.DurationValidate(loan, day0, date(2024, 2, 1)))
	assert.False(t, p.Checkout.DurationValidate(loan, date(2024, 1, 2), day0))

	assert.True(t, p.Extension.FromEndDate)
	assert.Equal(t, date(2024, 1, 22), p.Extension.DurationDefault(loan, date(2024, 1, 15)))
	assert.Equal(t, 3, p.Extension.MaxCount(loan))
	assert.True(t, p.Checkout.ItemCanCirculate("I1"))
	assert.True(t, p.Request.CanBeRequested(loan))

	unbounded := circulation.NewDefaultPolicies(circulation.PolicyConfig{LoanDuration: time.Hour})
	assert.True(t, unbounded.Checkout.DurationValidate(loan, day0, date(2030, 1, 1)))
}

func TestPolicies_ValidateNamesMissingHooks(t *testing.T) {
	t.Parallel()

	err := circulation.Policies{}.Validate()
	require.ErrorIs(t, err, circulation.ErrConfiguration)

	var ce *circulation.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{
		"checkout.duration_default",
		"checkout.duration_validate",
		"checkout.item_can_circulate",
		"extension.duration_default",
		"extension.max_count",
		"request.can_be_requested",
	}, ce.Missing)
	assert.Contains(t, err.Error(), "missing checkout.duration_default")
}

func TestExtendFromTransactionDate(t *testing.T) {
	t.Parallel()
	lib := newLibrary()
	policies := testPolicies()
	policies.Extension.FromEndDate = false

	e, err := circulation.NewEngine(lib.validators(), policies, lib.store,
		circulation.WithClock(func() time.Time { return day0 }))
	require.NoError(t, err)

	loan := checkedOut(t, lib, e, "I1")
	res, err := e.Resolve(t.Context(), loan, circulation.TriggerExtend, circulation.Payload{TransactionDate: date(2024, 1, 10)})
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 17), res.Loan.EndDate)
}
