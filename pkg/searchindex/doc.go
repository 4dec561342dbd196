// Package searchindex mirrors loans into OpenSearch.
//
// Index stores one document per loan, versioned externally by the loan
// revision so late writes of older revisions are ignored. It answers the
// two index-shaped lookups of circulation.Validators:
//
//	idx := searchindex.New(client, "loans")
//	validators.PendingLoansByDocument = idx.PendingLoansByDocument
//	validators.IsItemAvailableForCheckout = idx.IsItemAvailableForCheckout
//
// Index therefore satisfies catalog.Availability and can stand in for the
// primary store on those reads. The answers trail the store by at most one
// refresh interval.
//
// Identifiers are mapped as keywords; dates are omitted while unset so the
// request queue sorts unset request dates last.
//
// WriteThrough decorates any circulation.Store and indexes each loan after it
// was saved. Documents are encoded with json-iterator.
package searchindex
