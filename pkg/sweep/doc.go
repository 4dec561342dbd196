// Package sweep periodically drives automatic loan transitions.
//
// Some automatic edges depend on facts that change outside the engine: a
// requested item reaching the pickup desk, or an item in transit arriving.
// A Sweeper lists loans in the swept states (PENDING and
// ITEM_IN_TRANSIT_FOR_PICKUP by default) and calls ResolveByID with the
// automatic trigger for each. Loans at a rest point are counted as idle;
// persistence conflicts are retried on a fresh load.
//
//	s, err := sweep.New(store, engine, sweep.WithInterval(time.Minute), sweep.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	go s.Run(ctx)
package sweep
