package opensearch

import (
	"context"
	"errors"
	"fmt"

	"github.com/opensearch-project/opensearch-go/v2"
)

// Healthcheck returns a probe that calls the cluster info endpoint.
// A transport error and an error status both fail the probe.
func Healthcheck(client *opensearch.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		res, err := client.Info(client.Info.WithContext(ctx))
		if err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		defer res.Body.Close()
		if res.IsError() {
			return fmt.Errorf("%w: %s", ErrHealthcheckFailed, res.Status())
		}
		return nil
	}
}
