// Package mongo connects to MongoDB for the document loan store.
//
// Config is read from the environment (MONGODB_URL, MONGODB_DATABASE and the
// pool settings). New pings the server before returning and retries with a
// fixed interval, stopping early when the context ends:
//
//	db, err := mongo.NewWithDatabase(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	store := mongostore.New(db.Collection("loans"))
//
// Readiness is probed through mongostore.Store.Ping.
package mongo
