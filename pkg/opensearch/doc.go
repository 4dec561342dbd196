// Package opensearch creates the OpenSearch client behind the loan search index.
//
// Config is read from the environment; OPENSEARCH_ADDRESSES takes a comma
// separated list. New checks the cluster with an info call before handing the
// client out, and Healthcheck exposes the same call as a readiness probe.
//
//	client, err := opensearch.New(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	index := searchindex.New(client, cfg.Index)
package opensearch
