// Package browser is the desktop UI: a sidebar of listings, a paginated grid
// of file tiles with click and marquee selection, and a toolbar of batch
// actions over the selection.
package browser

import (
	"context"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/alexballas/xfilehost/actions"
	"github.com/alexballas/xfilehost/config"
	"github.com/alexballas/xfilehost/pager"
	"github.com/alexballas/xfilehost/preview"
	"github.com/alexballas/xfilehost/selection"
)

// Options override the collaborators a Browser builds by default.
type Options struct {
	Logger *zerolog.Logger
	// Previews is shared with the caller, who closes it. When nil the
	// browser runs its own, cached under the user cache directory.
	Previews *preview.Manager
	Saver    actions.Saver
	Confirm  actions.Confirmer
	// Go runs confirmed deletes. Defaults to a new goroutine.
	Go func(func())
}

// Browser is one file listing window. Each Browser owns its selection,
// controller and marquee engine; nothing is shared between instances.
type Browser struct {
	win fyne.Window
	cfg *config.Config
	svc Service
	log zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	listings    []config.Listing
	sel         *selection.Set
	ctrl        *pager.Controller
	actions     *actions.Dispatcher
	previews    *preview.Manager
	ownPreviews bool
	downloadDir string

	grid     *tileGrid
	pagerBar *pagerBar
	sidebar  *sidebar
	toast    *toast
	zoom     *zoom

	title       *widget.Label
	status      *widget.Label
	copyBtn     *widget.Button
	downloadBtn *widget.Button
	deleteBtn   *widget.Button
	clearBtn    *widget.Button
	banner      *fyne.Container
	bannerText  *widget.Label
	loading     *widget.ProgressBarInfinite
	content     fyne.CanvasObject

	originalOnTypedKey func(*fyne.KeyEvent)
	shown              bool
}

func New(win fyne.Window, cfg *config.Config, svc Service, opts Options) *Browser {
	b := &Browser{
		win:      win,
		cfg:      cfg,
		svc:      svc,
		log:      zerolog.Nop(),
		listings: cfg.Listings,
		sel:      selection.New(),
	}
	if opts.Logger != nil {
		b.log = opts.Logger.With().Str("component", "browser").Logger()
	}
	if len(b.listings) == 0 {
		b.listings = config.Default().Listings
	}
	b.ctx, b.cancel = context.WithCancel(context.Background())
	b.downloadDir = resolveDownloadDir(cfg.DownloadDir)

	prefs := fyne.CurrentApp().Preferences()
	start := min(max(prefs.IntWithFallback(listingKey, 0), 0), len(b.listings)-1)

	b.previews = opts.Previews
	if b.previews == nil {
		b.previews = preview.NewManager(svc, preview.DefaultCacheDir(), 4, &b.log)
		b.ownPreviews = true
	}

	b.zoom = newZoom(cfg.Grid.TileWidth, prefs, b.setTileWidth)
	b.ctrl = pager.New(svc, pager.Options{
		Endpoint:  b.listings[start].Endpoint,
		Rows:      cfg.Grid.Rows,
		TileWidth: b.zoom.tileWidth(),
		Gap:       cfg.Grid.Gap,
		Selection: b.sel,
		Logger:    &b.log,
	})

	b.toast = newToast(b.log)
	confirm := opts.Confirm
	if confirm == nil {
		confirm = windowConfirmer{win: win}
	}
	saver := opts.Saver
	if saver == nil {
		saver = newSaver(win, b.downloadDir)
	}
	b.actions = actions.New(svc, b.ctrl, b.toast, confirm, appClipboard{}, saver, actions.Options{
		DeletePolicy: cfg.DeletePolicy,
		Go:           opts.Go,
		Logger:       &b.log,
	})

	b.grid = newTileGrid(b.ctrl, b.previews, b.zoom.tileWidth(), cfg.Grid.Gap)
	b.grid.menu = b.contextMenu
	b.grid.busy = b.actions.Downloading
	b.pagerBar = newPagerBar(b.ctrl)
	b.sidebar = newSidebar(b.listings, b.selectListing)

	b.content = b.makeUI()
	b.sidebar.mark(start)
	b.title.SetText(b.listings[start].Name)

	b.ctrl.OnChanged(func() { fyne.Do(b.refreshList) })
	b.sel.OnChanged(func() { fyne.Do(b.refreshSelection) })
	b.actions.OnChanged(func() { fyne.Do(b.refreshActions) })
	b.refreshList()
	return b
}

// Content returns the root object, for embedding the browser in another window layout.
func (b *Browser) Content() fyne.CanvasObject {
	return b.content
}

// Controller exposes the page controller, e.g. to flag a refresh after an
// upload made elsewhere.
func (b *Browser) Controller() *pager.Controller {
	return b.ctrl
}

func (b *Browser) Selection() *selection.Set {
	return b.sel
}

// Show puts the browser into its window and installs the keyboard shortcuts.
func (b *Browser) Show() {
	b.win.SetContent(b.content)
	b.BindKeys()
}

// BindKeys installs the keyboard shortcuts on the window. Show calls it;
// callers embedding Content in their own layout call it themselves.
func (b *Browser) BindKeys() {
	if b.shown {
		return
	}
	b.shown = true

	c := b.win.Canvas()
	b.originalOnTypedKey = c.OnTypedKey()
	c.SetOnTypedKey(b.typedKeyHook)
	c.AddShortcut(&fyne.ShortcutSelectAll{}, func(fyne.Shortcut) { b.selectAll() })
	c.AddShortcut(&fyne.ShortcutCopy{}, func(fyne.Shortcut) { b.actions.CopyURLs() })
}

// Close removes the shortcuts and stops all background work.
func (b *Browser) Close() {
	if b.shown {
		c := b.win.Canvas()
		c.SetOnTypedKey(b.originalOnTypedKey)
		c.RemoveShortcut(&fyne.ShortcutSelectAll{})
		c.RemoveShortcut(&fyne.ShortcutCopy{})
		b.shown = false
	}
	b.grid.cancelDrag()
	b.grid.dismissMenu()
	b.cancel()
	b.ctrl.Close()
	if b.ownPreviews {
		b.previews.Close()
	}
}

func (b *Browser) makeUI() fyne.CanvasObject {
	b.title = widget.NewLabelWithStyle("", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})
	b.status = widget.NewLabel("")

	b.copyBtn = widget.NewButtonWithIcon("Copy links", theme.ContentCopyIcon(), b.actions.CopyURLs)
	b.downloadBtn = widget.NewButtonWithIcon("Download", theme.DownloadIcon(), b.download)
	b.deleteBtn = widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), b.requestDelete)
	b.deleteBtn.Importance = widget.DangerImportance
	b.clearBtn = widget.NewButtonWithIcon("", theme.ContentClearIcon(), b.sel.Clear)
	refreshBtn := widget.NewButtonWithIcon("", theme.ViewRefreshIcon(), b.ctrl.MarkNeedsRefresh)

	controls := container.NewHBox(
		b.copyBtn, b.downloadBtn, b.deleteBtn, b.clearBtn,
		widget.NewSeparator(),
		b.zoom.out, b.zoom.in, refreshBtn,
		newFolderChip(b.downloadDir, b.log),
	)
	topBar := container.NewHScroll(container.NewBorder(nil, nil, container.NewHBox(b.title, b.status), controls))

	b.bannerText = widget.NewLabel("")
	b.bannerText.Importance = widget.DangerImportance
	b.bannerText.Wrapping = fyne.TextWrapWord
	retry := widget.NewButtonWithIcon("Retry", theme.ViewRefreshIcon(), b.ctrl.MarkNeedsRefresh)
	b.banner = container.NewBorder(nil, nil, widget.NewIcon(theme.ErrorIcon()), retry, b.bannerText)
	b.banner.Hide()

	b.loading = widget.NewProgressBarInfinite()
	b.loading.Hide()

	header := container.NewVBox(topBar, widget.NewSeparator(), b.banner, b.loading)
	footer := container.NewVBox(b.pagerBar.content, b.toast.label)

	gridArea := container.New(newGridAreaLayout(func(width float32) {
		b.grid.dismissMenu()
		b.grid.measure(width)
	}), b.grid.content, newZoomScrollOverlay(b.zoom.adjust))

	split := container.NewHSplit(
		container.NewPadded(b.sidebar.list),
		container.NewBorder(nil, footer, nil, nil, gridArea),
	)
	split.SetOffset(0.2)

	return container.NewBorder(header, nil, nil, nil, split)
}

func (b *Browser) selectListing(id int, l config.Listing) {
	b.grid.cancelDrag()
	b.grid.dismissMenu()
	b.title.SetText(l.Name)
	fyne.CurrentApp().Preferences().SetInt(listingKey, id)
	b.log.Debug().Str("listing", l.Name).Str("endpoint", l.Endpoint).Msg("switching listing")
	b.ctrl.SetEndpoint(l.Endpoint)
}

func (b *Browser) setTileWidth(w float32) {
	b.grid.dismissMenu()
	b.grid.setTileWidth(w)
}

func (b *Browser) refreshList() {
	b.grid.sync()
	b.pagerBar.update()

	if msg := b.ctrl.Err(); msg != "" {
		b.bannerText.SetText(msg)
		b.banner.Show()
	} else {
		b.banner.Hide()
	}
	if b.ctrl.Loading() {
		b.loading.Show()
		b.loading.Start()
	} else {
		b.loading.Stop()
		b.loading.Hide()
	}
	b.updateStatus()
	b.refreshActions()
}

func (b *Browser) refreshSelection() {
	b.grid.refreshSelection()
	b.updateStatus()
	b.refreshActions()
}

func (b *Browser) updateStatus() {
	if n := len(b.sel.IDs()); n > 0 {
		b.status.SetText(fmt.Sprintf("%d selected", n))
		return
	}
	switch total := b.ctrl.Total(); total {
	case 0:
		b.status.SetText("")
	case 1:
		b.status.SetText("1 file")
	default:
		b.status.SetText(fmt.Sprintf("%d files", total))
	}
}

// refreshActions enables each action only when it would do something.
func (b *Browser) refreshActions() {
	// One snapshot: the set may be cleared off the UI goroutine.
	ids := b.sel.IDs()
	n := len(ids)
	setEnabled(b.copyBtn, n > 0)
	setEnabled(b.clearBtn, n > 0)
	setEnabled(b.deleteBtn, n > 0 && !b.actions.DeleteBusy())

	canDownload := false
	switch {
	case n == 1:
		canDownload = !b.actions.Downloading(ids[0])
	case n >= 2:
		canDownload = !b.actions.ZipBusy()
	}
	setEnabled(b.downloadBtn, canDownload)
	if n >= 2 {
		b.downloadBtn.SetText("Download zip")
	} else {
		b.downloadBtn.SetText("Download")
	}
	b.grid.refreshBusy()
}

func setEnabled(w fyne.Disableable, on bool) {
	if on {
		w.Enable()
	} else {
		w.Disable()
	}
}

func (b *Browser) download() {
	go b.actions.Download(b.ctx)
}

func (b *Browser) requestDelete() {
	b.actions.RequestDelete(b.ctx)
}

func (b *Browser) selectAll() {
	items := b.ctrl.Items()
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	b.sel.Replace(ids, false)
}

func (b *Browser) contextMenu() *fyne.Menu {
	n := len(b.sel.IDs())
	copyLabel, downloadLabel := "Copy link", "Download"
	if n > 1 {
		copyLabel, downloadLabel = "Copy links", "Download zip"
	}
	run := func(fn func()) func() {
		return func() {
			b.grid.dismissMenu()
			fn()
		}
	}
	deleteItem := fyne.NewMenuItem("Delete", run(b.requestDelete))
	deleteItem.Icon = theme.DeleteIcon()
	return fyne.NewMenu("",
		fyne.NewMenuItem(copyLabel, run(b.actions.CopyURLs)),
		fyne.NewMenuItem(downloadLabel, run(b.download)),
		fyne.NewMenuItemSeparator(),
		deleteItem,
	)
}

// typedKeyHook handles the grid keys while nothing else has focus.
func (b *Browser) typedKeyHook(ev *fyne.KeyEvent) {
	if b.originalOnTypedKey != nil {
		b.originalOnTypedKey(ev)
	}
	if ev == nil || b.win.Canvas().Focused() != nil {
		return
	}

	switch ev.Name {
	case fyne.KeyEscape:
		b.grid.dismissMenu()
		b.grid.cancelDrag()
		b.sel.Clear()
	case fyne.KeyDelete:
		b.requestDelete()
	}
}
