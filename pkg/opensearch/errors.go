package opensearch

import "errors"

var (
	ErrNoAddresses       = errors.New("opensearch: no addresses configured, set OPENSEARCH_ADDRESSES")
	ErrConnectionFailed  = errors.New("opensearch connection failed")
	ErrHealthcheckFailed = errors.New("opensearch healthcheck failed")
)
