// Package actions runs the batch operations offered for a selection: copy
// links, download one file or a zip, and delete.
//
// Failures never escape a Dispatcher. They are logged and reported through
// the Notifier, and every busy flag is released on all exit paths.
package actions

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexballas/xfilehost/api"
	"github.com/alexballas/xfilehost/config"
	"github.com/alexballas/xfilehost/selection"
)

// Service is the part of the API client the dispatcher needs.
type Service interface {
	BatchDelete(ctx context.Context, ids []int64) error
	BatchDownload(ctx context.Context, ids []int64) (*api.Blob, error)
	Fetch(ctx context.Context, link string) (*api.Blob, error)
	ResolveLink(link string) string
}

// List is the part of the page controller the dispatcher needs.
type List interface {
	Items() []api.Item
	Item(id int64) (api.Item, bool)
	RemoveItems(ids []int64)
	MarkNeedsRefresh()
	Selection() *selection.Set
}

type Level int

const (
	Info Level = iota
	Success
	Failure
)

// Notifier shows transient messages.
type Notifier interface {
	Notify(level Level, message string)
}

// Confirmer asks the user before a destructive action. onResult runs once.
type Confirmer interface {
	Confirm(title, message string, onResult func(ok bool))
}

// Clipboard writes text. Implementations may fail or panic when access is denied.
type Clipboard interface {
	WriteText(text string) error
}

// Saver persists a downloaded payload under a suggested name.
type Saver interface {
	Save(ctx context.Context, name string, data []byte) error
}

const (
	msgNetwork        = "Network error"
	msgDownloadFailed = "Download failed"
	msgZipFailed      = "Zip download failed"
	msgDeleteFailed   = "Delete failed"
	msgClipboard      = "Could not copy links to the clipboard"
)

type Options struct {
	// DeletePolicy is config.PolicyOptimistic (default) or config.PolicyRefetch.
	DeletePolicy string
	// Go runs confirmed work off the caller's goroutine. Defaults to a plain
	// goroutine.
	Go     func(func())
	Now    func() time.Time
	Logger *zerolog.Logger
}

type Dispatcher struct {
	svc     Service
	list    List
	notify  Notifier
	confirm Confirmer
	clip    Clipboard
	saver   Saver

	policy string
	run    func(func())
	now    func() time.Time
	log    zerolog.Logger

	mu          sync.Mutex
	zipBusy     bool
	deleteBusy  bool
	downloading map[int64]bool
	listeners   []func()
}

func New(svc Service, list List, notify Notifier, confirm Confirmer, clip Clipboard, saver Saver, opts Options) *Dispatcher {
	d := &Dispatcher{
		svc:         svc,
		list:        list,
		notify:      notify,
		confirm:     confirm,
		clip:        clip,
		saver:       saver,
		policy:      opts.DeletePolicy,
		run:         opts.Go,
		now:         opts.Now,
		log:         zerolog.Nop(),
		downloading: make(map[int64]bool),
	}
	if d.policy == "" {
		d.policy = config.PolicyOptimistic
	}
	if d.run == nil {
		d.run = func(fn func()) { go fn() }
	}
	if d.now == nil {
		d.now = time.Now
	}
	if opts.Logger != nil {
		d.log = opts.Logger.With().Str("component", "actions").Logger()
	}
	return d
}

// OnChanged registers fn to run whenever a busy flag flips.
func (d *Dispatcher) OnChanged(fn func()) {
	d.mu.Lock()
	d.listeners = append(d.listeners, fn)
	d.mu.Unlock()
}

func (d *Dispatcher) ZipBusy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.zipBusy
}

func (d *Dispatcher) DeleteBusy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deleteBusy
}

// Downloading reports whether a single download of id is in flight.
func (d *Dispatcher) Downloading(id int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.downloading[id]
}

// selectedItems returns the selected items in list order.
func (d *Dispatcher) selectedItems() []api.Item {
	sel := d.list.Selection()
	var out []api.Item
	for _, it := range d.list.Items() {
		if sel.Contains(it.ID) {
			out = append(out, it)
		}
	}
	return out
}

// CopyURLs writes the resolved links of the selected items to the
// clipboard, one per line.
func (d *Dispatcher) CopyURLs() {
	items := d.selectedItems()
	if len(items) == 0 {
		return
	}
	links := make([]string, len(items))
	for i, it := range items {
		links[i] = d.svc.ResolveLink(it.DirectLink)
	}

	if err := d.writeClipboard(strings.Join(links, "\n")); err != nil {
		d.log.Warn().Err(err).Msg("clipboard write failed")
		d.notify.Notify(Failure, msgClipboard)
		return
	}
	if len(links) == 1 {
		d.notify.Notify(Success, "Link copied")
		return
	}
	d.notify.Notify(Success, fmt.Sprintf("Copied %d links", len(links)))
}

func (d *Dispatcher) writeClipboard(text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("clipboard: %v", r)
		}
	}()
	return d.clip.WriteText(text)
}

// Download saves the selection: the file itself for one item, a zip for more.
func (d *Dispatcher) Download(ctx context.Context) {
	switch n := d.list.Selection().Len(); {
	case n == 1:
		d.DownloadOne(ctx)
	case n >= 2:
		d.DownloadZip(ctx)
	}
}

// DownloadOne fetches and saves the single selected item.
func (d *Dispatcher) DownloadOne(ctx context.Context) {
	sel := d.list.Selection().IDs()
	if len(sel) != 1 {
		return
	}
	item, ok := d.list.Item(sel[0])
	if !ok {
		return
	}

	d.mu.Lock()
	if d.downloading[item.ID] {
		d.mu.Unlock()
		return
	}
	d.downloading[item.ID] = true
	d.mu.Unlock()
	d.changed()

	defer func() {
		d.mu.Lock()
		delete(d.downloading, item.ID)
		d.mu.Unlock()
		d.changed()
	}()

	blob, err := d.svc.Fetch(ctx, item.DirectLink)
	if err != nil {
		d.fail("download", err, msgDownloadFailed)
		return
	}

	name := item.DisplayName()
	if name == "" {
		name = blob.Name
	}
	if name == "" {
		name = fmt.Sprintf("file-%d", item.ID)
	}
	d.save(ctx, name, blob.Data)
}

// DownloadZip asks the server to bundle the selection. A second call while
// one is in flight does nothing.
func (d *Dispatcher) DownloadZip(ctx context.Context) {
	ids := d.list.Selection().IDs()
	if len(ids) < 2 {
		return
	}

	d.mu.Lock()
	if d.zipBusy {
		d.mu.Unlock()
		return
	}
	d.zipBusy = true
	d.mu.Unlock()
	d.changed()

	defer func() {
		d.mu.Lock()
		d.zipBusy = false
		d.mu.Unlock()
		d.changed()
	}()

	blob, err := d.svc.BatchDownload(ctx, ids)
	if err != nil {
		d.fail("zip download", err, msgZipFailed)
		return
	}
	name := blob.Name
	if name == "" {
		name = fmt.Sprintf("files-%d.zip", d.now().Unix())
	}
	d.save(ctx, name, blob.Data)
}

func (d *Dispatcher) save(ctx context.Context, name string, data []byte) {
	name = filepath.Base(filepath.Clean("/" + name))
	if err := d.saver.Save(ctx, name, data); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		d.log.Error().Err(err).Str("name", name).Msg("save failed")
		d.notify.Notify(Failure, fmt.Sprintf("Could not save %s", name))
		return
	}
	d.notify.Notify(Success, fmt.Sprintf("Saved %s", name))
}

// RequestDelete asks for confirmation and then deletes the current
// selection through the configured executor.
func (d *Dispatcher) RequestDelete(ctx context.Context) {
	ids := d.list.Selection().IDs()
	if len(ids) == 0 || d.DeleteBusy() {
		return
	}

	msg := "Delete the selected file? This cannot be undone."
	if len(ids) > 1 {
		msg = fmt.Sprintf("Delete %d selected files? This cannot be undone.", len(ids))
	}
	d.confirm.Confirm("Delete files", msg, func(ok bool) {
		if !ok {
			return
		}
		d.run(func() { d.Delete(ctx, ids) })
	})
}

// Delete removes ids on the server. On success the local page either drops
// them or reloads, depending on the policy, and the selection is cleared.
// On failure nothing local changes.
func (d *Dispatcher) Delete(ctx context.Context, ids []int64) {
	if len(ids) == 0 {
		return
	}

	d.mu.Lock()
	if d.deleteBusy {
		d.mu.Unlock()
		return
	}
	d.deleteBusy = true
	d.mu.Unlock()
	d.changed()

	defer func() {
		d.mu.Lock()
		d.deleteBusy = false
		d.mu.Unlock()
		d.changed()
	}()

	if err := d.svc.BatchDelete(ctx, ids); err != nil {
		d.fail("delete", err, msgDeleteFailed)
		return
	}

	if d.policy == config.PolicyRefetch {
		d.list.MarkNeedsRefresh()
	} else {
		d.list.RemoveItems(ids)
	}
	d.list.Selection().Clear()

	d.log.Info().Ints64("ids", ids).Str("policy", d.policy).Msg("deleted")
	if len(ids) == 1 {
		d.notify.Notify(Success, "Deleted 1 file")
		return
	}
	d.notify.Notify(Success, fmt.Sprintf("Deleted %d files", len(ids)))
}

func (d *Dispatcher) fail(action string, err error, fallback string) {
	d.log.Error().Err(err).Str("action", action).Msg("action failed")
	if errors.Is(err, api.ErrTransport) {
		d.notify.Notify(Failure, msgNetwork)
		return
	}
	d.notify.Notify(Failure, api.Message(err, fallback))
}

func (d *Dispatcher) changed() {
	d.mu.Lock()
	listeners := append([]func(){}, d.listeners...)
	d.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}
