// Package memstore is an in-memory circulation.Store with optimistic
// revisions. Besides Get and Save it answers the two queue lookups the
// engine's validators need, PendingLoansByDocument and
// IsItemAvailableForCheckout, which makes it a complete backend for tests
// and single-process hosts.
package memstore
