package searchindex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/dmitrymomot/circulation/pkg/circulation"
	"github.com/dmitrymomot/circulation/pkg/logger"
)

// maxQueueSize bounds a single pending-queue page.
const maxQueueSize = 1000

var (
	ErrIndexRequest  = errors.New("searchindex: request failed")
	ErrIndexResponse = errors.New("searchindex: unexpected response")
)

// Index mirrors loans into an OpenSearch index and answers the queue and
// availability lookups from it.
type Index struct {
	client  *opensearch.Client
	name    string
	refresh string
	log     *slog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithRefresh sets the refresh policy for writes ("true", "false" or "wait_for").
func WithRefresh(policy string) Option {
	return func(i *Index) { i.refresh = policy }
}

// WithLogger sets the logger for stale writes and write-through failures.
func WithLogger(l *slog.Logger) Option {
	return func(i *Index) {
		if l != nil {
			i.log = l
		}
	}
}

// New returns an Index over the named index. It panics if client is nil.
func New(client *opensearch.Client, name string, opts ...Option) *Index {
	if client == nil {
		panic("searchindex: client cannot be nil")
	}
	i := &Index{
		client:  client,
		name:    name,
		refresh: "wait_for",
		log:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.name}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return errors.Join(ErrIndexRequest, err)
	}
	drain(res)
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, err := json.Marshal(mapping())
	if err != nil {
		return fmt.Errorf("searchindex: encode mapping: %w", err)
	}
	res, err = i.client.Indices.Create(i.name,
		i.client.Indices.Create.WithContext(ctx),
		i.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return errors.Join(ErrIndexRequest, err)
	}
	return checkResponse(res, nil)
}

// Ping reports whether the cluster answers and the index exists.
func (i *Index) Ping(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.name}, i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return errors.Join(ErrIndexRequest, err)
	}
	drain(res)
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: index %s: status %d", ErrIndexResponse, i.name, res.StatusCode)
	}
	return nil
}

// Put indexes the loan using its revision as an external version, so an
// out-of-order write of an older revision is dropped.
func (i *Index) Put(ctx context.Context, loan *circulation.Loan) error {
	if loan == nil {
		return circulation.ErrNilLoan
	}
	body, err := json.Marshal(toDocument(loan))
	if err != nil {
		return fmt.Errorf("searchindex: encode loan %s: %w", loan.ID, err)
	}

	res, err := i.client.Index(i.name, bytes.NewReader(body),
		i.client.Index.WithContext(ctx),
		i.client.Index.WithDocumentID(loan.ID),
		i.client.Index.WithVersion(int(loan.Revision)),
		i.client.Index.WithVersionType("external_gte"),
		i.client.Index.WithRefresh(i.refresh),
	)
	if err != nil {
		return errors.Join(ErrIndexRequest, err)
	}
	if res.StatusCode == http.StatusConflict {
		drain(res)
		i.log.DebugContext(ctx, "skipped stale index write", logger.LoanID(loan.ID), logger.Revision(loan.Revision))
		return nil
	}
	return checkResponse(res, nil)
}

// Delete removes a loan document. Missing documents are not an error.
func (i *Index) Delete(ctx context.Context, id string) error {
	res, err := i.client.Delete(i.name, id,
		i.client.Delete.WithContext(ctx),
		i.client.Delete.WithRefresh(i.refresh),
	)
	if err != nil {
		return errors.Join(ErrIndexRequest, err)
	}
	if res.StatusCode == http.StatusNotFound {
		drain(res)
		return nil
	}
	return checkResponse(res, nil)
}

// PendingLoansByDocument lists request-state loans of the document, oldest first.
func (i *Index) PendingLoansByDocument(ctx context.Context, documentPID string) ([]*circulation.Loan, error) {
	body, err := json.Marshal(pendingQuery(documentPID))
	if err != nil {
		return nil, fmt.Errorf("searchindex: encode query: %w", err)
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.name),
		i.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, errors.Join(ErrIndexRequest, err)
	}

	var out searchResponse
	if err := checkResponse(res, &out); err != nil {
		return nil, err
	}
	loans := make([]*circulation.Loan, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		loans = append(loans, h.Source.loan())
	}
	return loans, nil
}

// IsItemAvailableForCheckout reports whether no active loan other than
// excludingLoanID holds the item.
func (i *Index) IsItemAvailableForCheckout(ctx context.Context, itemPID, excludingLoanID string) (bool, error) {
	body, err := json.Marshal(activeItemQuery(itemPID, excludingLoanID))
	if err != nil {
		return false, fmt.Errorf("searchindex: encode query: %w", err)
	}

	res, err := i.client.Count(
		i.client.Count.WithContext(ctx),
		i.client.Count.WithIndex(i.name),
		i.client.Count.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return false, errors.Join(ErrIndexRequest, err)
	}

	var out countResponse
	if err := checkResponse(res, &out); err != nil {
		return false, err
	}
	return out.Count == 0, nil
}

// checkResponse closes the body, maps error statuses and decodes into v when non-nil.
func checkResponse(res *opensearchapi.Response, v any) error {
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return fmt.Errorf("%w: status %d: %s", ErrIndexResponse, res.StatusCode, bytes.TrimSpace(msg))
	}
	if v == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrIndexResponse, err)
	}
	return nil
}

func drain(res *opensearchapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
