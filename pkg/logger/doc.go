// Package logger builds structured slog loggers for circulation services.
//
// New returns a *slog.Logger configured through functional options: output
// format (text or json), minimum level, static attributes and context
// extractors that pull request-scoped values (acting staff member, request id)
// out of context.Context on every record.
//
// Attribute helpers such as LoanID, State, Trigger and Reason keep key names
// uniform across the engine and the storage adapters.
//
// # Usage
//
//	var cfg logger.Config
//	config.MustLoad(&cfg)
//
//	log := logger.New(
//	    logger.FromConfig(cfg, "circulation-sweep"),
//	    logger.WithContextValue("transaction_user_pid", ctxKeyUser),
//	)
//	log.InfoContext(ctx, "loan transition committed",
//	    logger.LoanID(loan.ID),
//	    logger.Transition("PENDING", "ITEM_AT_DESK"),
//	)
//
// ContextWithLoan tags a context with the loan being worked on; a logger
// built with WithContextExtractors(LoanExtractor()) then adds loan_id to each
// record under it, unless the record already sets that key.
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally.
package logger
