// Package pager keeps a local mirror of one page of a remote listing, sized
// to fill the visible grid.
package pager

import (
	"context"
	"math"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/alexballas/xfilehost/api"
	"github.com/alexballas/xfilehost/selection"
)

// DefaultRows is the number of grid rows a page fills.
const DefaultRows = 5

const (
	loadFailed     = "Failed to load files"
	signInRequired = "Sign in required. Check the API token."
)

// Lister is the part of the API client the controller needs.
type Lister interface {
	ListFiles(ctx context.Context, endpoint string, page, pageSize int) (*api.Page, error)
}

type Options struct {
	Endpoint  string
	// Page is the first page to load. Defaults to 1.
	Page      int
	Rows      int
	TileWidth float32
	Gap       float32
	// Selection is cleared after every successful load. A new set is
	// created when nil.
	Selection *selection.Set
	Logger    *zerolog.Logger
}

// fetchKey identifies one load. A change of any field schedules a fetch.
type fetchKey struct {
	page       int
	pageSize   int
	endpoint   string
	generation int
}

// Controller tracks page state and loads pages asynchronously. All methods
// are safe for concurrent use; listeners run on the calling goroutine or on
// the fetch goroutine.
type Controller struct {
	lister Lister
	sel    *selection.Set
	log    zerolog.Logger
	rows   int
	gap    float32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	endpoint  string
	tileWidth float32
	width     float32
	columns   int
	pageSize  int
	page      int
	total     int
	items     []api.Item
	errMsg    string
	loading   bool
	gen       int
	seq       uint64
	last      fetchKey
	listeners []func()
}

func New(lister Lister, opts Options) *Controller {
	if opts.Rows <= 0 {
		opts.Rows = DefaultRows
	}
	if opts.TileWidth <= 0 {
		opts.TileWidth = 160
	}
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Selection == nil {
		opts.Selection = selection.New()
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "pager").Logger()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		lister:    lister,
		sel:       opts.Selection,
		log:       log,
		rows:      opts.Rows,
		gap:       opts.Gap,
		ctx:       ctx,
		cancel:    cancel,
		endpoint:  opts.Endpoint,
		tileWidth: opts.TileWidth,
		page:      opts.Page,
	}
}

// Selection returns the selection owned by this listing.
func (c *Controller) Selection() *selection.Set {
	return c.sel
}

// OnChanged registers fn to run after any state change.
func (c *Controller) OnChanged(fn func()) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Measure sets the available grid width. Nothing is fetched until a
// positive width is known.
func (c *Controller) Measure(width float32) {
	c.update(func() {
		if width <= 0 {
			return
		}
		c.width = width
		c.relayoutLocked()
	})
}

// SetTileWidth changes the tile width, e.g. on zoom, and recomputes the
// page size from the last measured width.
func (c *Controller) SetTileWidth(w float32) {
	if w <= 0 {
		return
	}
	c.update(func() {
		c.tileWidth = w
		c.relayoutLocked()
	})
}

func (c *Controller) relayoutLocked() {
	if c.width <= 0 {
		return
	}
	c.columns = Columns(c.width, c.tileWidth, c.gap)
	c.pageSize = c.columns * c.rows
}

// Columns returns how many tiles of tileWidth fit in width.
func Columns(width, tileWidth, gap float32) int {
	if tileWidth+gap <= 0 {
		return 1
	}
	n := int(math.Floor(float64((width + gap) / (tileWidth + gap))))
	if n < 1 {
		return 1
	}
	return n
}

func (c *Controller) SetPage(page int) {
	c.update(func() {
		if page < 1 {
			page = 1
		}
		if last := c.totalPagesLocked(); page > last {
			page = last
		}
		c.page = page
	})
}

func (c *Controller) Next() {
	c.update(func() {
		if c.page < c.totalPagesLocked() {
			c.page++
		}
	})
}

func (c *Controller) Prev() {
	c.update(func() {
		if c.page > 1 {
			c.page--
		}
	})
}

// SetEndpoint switches listings. Page and selection start over.
func (c *Controller) SetEndpoint(endpoint string) {
	c.update(func() {
		if endpoint == c.endpoint {
			return
		}
		c.endpoint = endpoint
		c.page = 1
		c.total = 0
		c.items = nil
		c.errMsg = ""
	})
	c.sel.Clear()
}

// MarkNeedsRefresh reloads the current page even though nothing else changed.
func (c *Controller) MarkNeedsRefresh() {
	c.update(func() {
		c.gen++
	})
}

// RemoveItems drops ids from the local page and decrements the total.
// An emptied page is reloaded so the grid never sits empty while the
// listing still has content.
func (c *Controller) RemoveItems(ids []int64) {
	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	c.update(func() {
		kept := c.items[:0:0]
		for _, it := range c.items {
			if _, ok := drop[it.ID]; !ok {
				kept = append(kept, it)
			}
		}
		removed := len(c.items) - len(kept)
		if removed == 0 {
			return
		}
		c.items = kept
		c.total = max(0, c.total-removed)
		if len(kept) == 0 && (c.total > 0 || c.page > 1) {
			c.gen++
		}
	})
	c.sel.Remove(ids...)
}

// Wait blocks until no fetch is in flight.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close abandons in-flight fetches and waits for them to return.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) Items() []api.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.Item, len(c.items))
	copy(out, c.items)
	return out
}

// Item returns the item with id on the current page.
func (c *Controller) Item(id int64) (api.Item, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.ID == id {
			return it, true
		}
	}
	return api.Item{}, false
}

func (c *Controller) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

func (c *Controller) Page() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page
}

func (c *Controller) PageSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageSize
}

func (c *Controller) Columns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.columns
}

func (c *Controller) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

func (c *Controller) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPagesLocked()
}

// Paginated reports whether there is more than one page.
func (c *Controller) Paginated() bool {
	return c.TotalPages() > 1
}

// Err returns the message of the last failed load, or "".
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Controller) totalPagesLocked() int {
	if c.pageSize <= 0 {
		return 1
	}
	return max(1, (c.total+c.pageSize-1)/c.pageSize)
}

// update applies fn under the lock, schedules a fetch if the fetch key
// changed and notifies listeners.
func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	c.scheduleLocked()
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}

func (c *Controller) scheduleLocked() {
	if c.pageSize <= 0 {
		return
	}
	key := fetchKey{
		page:       c.page,
		pageSize:   c.pageSize,
		endpoint:   c.endpoint,
		generation: c.gen,
	}
	if key == c.last {
		return
	}
	c.last = key
	c.seq++
	c.loading = true
	c.wg.Add(1)
	go c.fetch(c.seq, key)
}

func (c *Controller) fetch(seq uint64, key fetchKey) {
	defer c.wg.Done()

	c.log.Debug().
		Str("endpoint", key.endpoint).
		Int("page", key.page).
		Int("page_size", key.pageSize).
		Uint64("seq", seq).
		Msg("loading page")

	page, err := c.lister.ListFiles(c.ctx, key.endpoint, key.page, key.pageSize)
	c.apply(seq, key, page, err)
}

func (c *Controller) apply(seq uint64, key fetchKey, page *api.Page, err error) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.log.Debug().Uint64("seq", seq).Msg("discarding stale page")
		return
	}
	c.loading = false

	clearSelection := false
	switch {
	case err != nil:
		fallback := loadFailed
		if api.IsStatus(err, http.StatusUnauthorized) {
			fallback = signInRequired
		}
		c.errMsg = api.Message(err, fallback)
		c.log.Warn().Err(err).Str("endpoint", key.endpoint).Int("page", key.page).Msg("page load failed")
	case len(page.Items) == 0 && key.page > 1:
		// Trailing page emptied, e.g. by a delete elsewhere. Step back; the
		// page change schedules the next load.
		c.total = page.Total
		c.page = key.page - 1
		c.errMsg = ""
		c.scheduleLocked()
	default:
		c.items = dedupe(page.Items)
		c.total = page.Total
		c.errMsg = ""
		clearSelection = true
	}
	listeners := append([]func(){}, c.listeners...)
	c.mu.Unlock()

	if clearSelection {
		c.sel.Clear()
	}
	for _, l := range listeners {
		l()
	}
}

// dedupe keeps the first occurrence of each id.
func dedupe(items []api.Item) []api.Item {
	seen := make(map[int64]struct{}, len(items))
	out := make([]api.Item, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}
