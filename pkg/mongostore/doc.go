// Package mongostore keeps loans in a MongoDB collection, one document per
// loan keyed by the loan id.
//
// Save is a compare-and-swap on the revision field: a loan at revision 0 is
// inserted, any other loan replaces the stored document through a filter on
// both _id and revision. No match means another writer got there first and
// the call returns circulation.ErrPersistenceConflict.
//
// The pending-queue and availability lookups match circulation.Validators,
// and EnsureIndexes creates the indexes they rely on.
package mongostore
