// Package audit records an append-only trail of actions taken on loans.
//
// A Logger builds an Event for every action (id, timestamp, acting user,
// request id, resource, result, metadata) and hands it to a Writer.
// Writers shipped here:
//
//   - MemoryWriter keeps events in memory for tests and single-process setups.
//   - AsyncWriter groups events into batches for any BatchWriter, such as the
//     PostgreSQL audit table in pgstore.
//
// # Usage
//
//	writer, closeFn := audit.NewAsyncWriter(pgstore.NewAuditWriter(pool), audit.AsyncOptions{})
//	defer closeFn(context.Background())
//
//	log := audit.NewLogger(writer, audit.WithUserIDExtractor(staffFromContext))
//	_ = log.Log(ctx, "loan.checkout",
//	    audit.WithLoan(loan.ID),
//	    audit.WithTransition("ITEM_AT_DESK", "ITEM_ON_LOAN"),
//	)
//
// LogError records the action with ResultError and the error text;
// WithRejection downgrades it to ResultFailure for business refusals.
//
// By default AsyncWriter.Store waits for its batch to be written. With
// AsyncOptions.Detached it returns once the event is queued and reports
// write failures to OnError.
//
// # Errors
//
//   - ErrEventValidation: the event has no action.
//   - ErrStorageNotAvailable: the async writer has been closed.
package audit
