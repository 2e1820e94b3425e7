package browser

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/alexballas/xfilehost/pager"
)

// pagerBar shows Prev/Next and numbered page buttons. It hides itself when
// the listing fits on one page.
type pagerBar struct {
	ctrl    *pager.Controller
	prev    *widget.Button
	next    *widget.Button
	pages   *fyne.Container
	summary *widget.Label
	content *fyne.Container

	shownPage, shownTotal int
}

func newPagerBar(ctrl *pager.Controller) *pagerBar {
	b := &pagerBar{
		ctrl:    ctrl,
		pages:   container.NewHBox(),
		summary: widget.NewLabel(""),
	}
	b.prev = widget.NewButtonWithIcon("", theme.NavigateBackIcon(), ctrl.Prev)
	b.next = widget.NewButtonWithIcon("", theme.NavigateNextIcon(), ctrl.Next)
	b.content = container.NewCenter(container.NewHBox(b.prev, container.NewHScroll(b.pages), b.next, b.summary))
	b.content.Hide()
	return b
}

func (b *pagerBar) update() {
	page, total := b.ctrl.Page(), b.ctrl.TotalPages()
	if !b.ctrl.Paginated() {
		b.content.Hide()
		return
	}
	b.content.Show()

	if page <= 1 {
		b.prev.Disable()
	} else {
		b.prev.Enable()
	}
	if page >= total {
		b.next.Disable()
	} else {
		b.next.Enable()
	}
	b.summary.SetText(fmt.Sprintf("%d files", b.ctrl.Total()))

	if page == b.shownPage && total == b.shownTotal {
		return
	}
	b.shownPage, b.shownTotal = page, total

	b.pages.Objects = nil
	for _, n := range pageWindow(page, total, 2) {
		if n == 0 {
			b.pages.Add(widget.NewLabel("…"))
			continue
		}
		target := n
		btn := widget.NewButton(strconv.Itoa(n), func() {
			b.ctrl.SetPage(target)
		})
		if n == page {
			btn.Importance = widget.HighImportance
		}
		b.pages.Add(btn)
	}
	b.pages.Refresh()
}

// pageWindow lists the page numbers to show: the first and last page and
// span pages either side of current. A 0 marks a gap.
func pageWindow(current, total, span int) []int {
	if total <= 1 {
		return []int{1}
	}
	current = min(max(current, 1), total)

	var out []int
	last := 0
	for n := 1; n <= total; n++ {
		if n != 1 && n != total && (n < current-span || n > current+span) {
			continue
		}
		if last != 0 && n-last > 1 {
			out = append(out, 0)
		}
		out = append(out, n)
		last = n
	}
	return out
}
