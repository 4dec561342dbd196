package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/circulation/pkg/circulation"
)

var (
	ErrFailedToReadCatalog  = errors.New("catalog: failed to read file")
	ErrFailedToParseCatalog = errors.New("catalog: failed to parse yaml")
	ErrInvalidCatalog       = errors.New("catalog: invalid snapshot")
)

// Location is a library location. Pickup marks locations where requested
// items can be collected.
type Location struct {
	PID    string `yaml:"pid"`
	Pickup bool   `yaml:"pickup"`
}

// Item is a physical copy. Location is where it currently is: its shelf while
// available or in transit, its owning location while on loan.
type Item struct {
	PID         string `yaml:"pid"`
	Document    string `yaml:"document"`
	Location    string `yaml:"location"`
	NoCirculate bool   `yaml:"no_circulate"`
	NoRequest   bool   `yaml:"no_request"`
}

// Snapshot is the YAML shape of a catalog export.
type Snapshot struct {
	Locations []Location `yaml:"locations"`
	Items     []Item     `yaml:"items"`
	Documents []string   `yaml:"documents"`
	Patrons   []string   `yaml:"patrons"`
	Users     []string   `yaml:"users"`
}

type index struct {
	locations map[string]Location
	items     map[string]Item
	documents map[string][]string
	patrons   map[string]struct{}
	users     map[string]struct{}
}

// Catalog answers item, patron and location lookups from a snapshot of the
// library system. It is safe for concurrent use and can be reloaded in place.
type Catalog struct {
	mu      sync.RWMutex
	idx     index
	path    string
	modTime time.Time
}

// Parse builds a Catalog from YAML content.
func Parse(content []byte) (*Catalog, error) {
	idx, err := parse(content)
	if err != nil {
		return nil, err
	}
	return &Catalog{idx: idx}, nil
}

// Load reads the snapshot file at path. Reload re-reads the same file.
func Load(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if _, err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the file if its modification time changed. It reports
// whether a new snapshot was installed. On error the old snapshot stays.
func (c *Catalog) Reload() (bool, error) {
	if c.path == "" {
		return false, nil
	}
	info, err := os.Stat(c.path)
	if err != nil {
		return false, errors.Join(ErrFailedToReadCatalog, err)
	}

	c.mu.RLock()
	unchanged := !c.modTime.IsZero() && info.ModTime().Equal(c.modTime)
	c.mu.RUnlock()
	if unchanged {
		return false, nil
	}

	content, err := os.ReadFile(c.path)
	if err != nil {
		return false, errors.Join(ErrFailedToReadCatalog, err)
	}
	idx, err := parse(content)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.idx = idx
	c.modTime = info.ModTime()
	c.mu.Unlock()
	return true, nil
}

func parse(content []byte) (index, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(content, &snap); err != nil {
		return index{}, errors.Join(ErrFailedToParseCatalog, err)
	}

	idx := index{
		locations: make(map[string]Location, len(snap.Locations)),
		items:     make(map[string]Item, len(snap.Items)),
		documents: make(map[string][]string, len(snap.Documents)),
		patrons:   toSet(snap.Patrons),
		users:     toSet(snap.Users),
	}
	for _, l := range snap.Locations {
		if l.PID == "" {
			return index{}, fmt.Errorf("%w: location without pid", ErrInvalidCatalog)
		}
		idx.locations[l.PID] = l
	}
	for _, d := range snap.Documents {
		idx.documents[d] = nil
	}
	for _, it := range snap.Items {
		if it.PID == "" {
			return index{}, fmt.Errorf("%w: item without pid", ErrInvalidCatalog)
		}
		if _, ok := idx.locations[it.Location]; !ok {
			return index{}, fmt.Errorf("%w: item %s at unknown location %q", ErrInvalidCatalog, it.PID, it.Location)
		}
		idx.items[it.PID] = it
		if it.Document != "" {
			idx.documents[it.Document] = append(idx.documents[it.Document], it.PID)
		}
	}
	return idx, nil
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func (c *Catalog) snapshot() index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idx
}

func (c *Catalog) item(pid string) (Item, bool) {
	it, ok := c.snapshot().items[pid]
	return it, ok
}

func (c *Catalog) ItemExists(_ context.Context, pid string) (bool, error) {
	_, ok := c.item(pid)
	return ok, nil
}

func (c *Catalog) PatronExists(_ context.Context, pid string) (bool, error) {
	_, ok := c.snapshot().patrons[pid]
	return ok, nil
}

func (c *Catalog) DocumentExists(_ context.Context, pid string) (bool, error) {
	_, ok := c.snapshot().documents[pid]
	return ok, nil
}

// ItemLocation returns the item's current location.
func (c *Catalog) ItemLocation(_ context.Context, pid string) (string, error) {
	it, ok := c.item(pid)
	if !ok {
		return "", fmt.Errorf("catalog: unknown item %q", pid)
	}
	return it.Location, nil
}

func (c *Catalog) ValidateTransactionLocation(_ context.Context, pid string) (bool, error) {
	_, ok := c.snapshot().locations[pid]
	return ok, nil
}

func (c *Catalog) ValidateTransactionUser(_ context.Context, pid string) (bool, error) {
	_, ok := c.snapshot().users[pid]
	return ok, nil
}

// ValidatePickupTransactionLocations accepts a pending loan whose pickup
// location is a known pickup desk.
func (c *Catalog) ValidatePickupTransactionLocations(_ context.Context, loan *circulation.Loan, _ circulation.State) (bool, error) {
	loc, ok := c.snapshot().locations[loan.PickupLocationPID]
	return ok && loc.Pickup, nil
}

// ItemCanCirculate reports whether the item is loanable.
func (c *Catalog) ItemCanCirculate(pid string) bool {
	it, ok := c.item(pid)
	return ok && !it.NoCirculate
}

// CanBeRequested reports whether the loan's item, or any item of its
// document for document-level requests, accepts requests.
func (c *Catalog) CanBeRequested(loan *circulation.Loan) bool {
	idx := c.snapshot()
	if loan.ItemPID != "" {
		it, ok := idx.items[loan.ItemPID]
		return ok && !it.NoRequest
	}
	return slices.ContainsFunc(idx.documents[loan.DocumentPID], func(pid string) bool {
		return !idx.items[pid].NoRequest
	})
}

// Items returns the item pids of a document in snapshot order.
func (c *Catalog) Items(documentPID string) []string {
	return slices.Clone(c.snapshot().documents[documentPID])
}
