package browser

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/alexballas/xfilehost/config"
)

// sidebar lists the configured listings. Selecting one points the grid at
// its endpoint.
type sidebar struct {
	list     *widget.List
	items    []config.Listing
	onSelect func(id int, l config.Listing)
	current  int
}

func newSidebar(items []config.Listing, onSelect func(int, config.Listing)) *sidebar {
	s := &sidebar{items: items, onSelect: onSelect, current: -1}

	s.list = widget.NewList(
		func() int { return len(s.items) },
		func() fyne.CanvasObject {
			return container.NewHBox(
				widget.NewIcon(theme.StorageIcon()),
				widget.NewLabel("Template"),
			)
		},
		func(id widget.ListItemID, o fyne.CanvasObject) {
			if id >= len(s.items) {
				return
			}
			box := o.(*fyne.Container)
			box.Objects[1].(*widget.Label).SetText(s.items[id].Name)
		},
	)
	s.list.OnSelected = func(id widget.ListItemID) {
		if id >= len(s.items) || id == s.current {
			return
		}
		s.current = id
		if s.onSelect != nil {
			s.onSelect(id, s.items[id])
		}
		// Give keyboard shortcuts back to the window.
		if c := fyne.CurrentApp().Driver().CanvasForObject(s.list); c != nil {
			c.Unfocus()
		}
	}
	return s
}

// mark highlights id without switching listings.
func (s *sidebar) mark(id int) {
	if id < 0 || id >= len(s.items) {
		return
	}
	s.current = id
	s.list.Select(id)
}
