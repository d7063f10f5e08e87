package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/jask/papertriage/internal/service"
)

// collectionItem is one row of the collection picker.
type collectionItem struct {
	info service.CollectionInfo
}

func (i collectionItem) Title() string       { return i.info.ID }
func (i collectionItem) FilterValue() string { return i.info.ID }

func (i collectionItem) Description() string {
	p := i.info.Progress
	if !p.Exists {
		if i.info.RecordCount > 0 {
			return fmt.Sprintf("not started · %d records", i.info.RecordCount)
		}
		return "not started"
	}
	desc := fmt.Sprintf("%d classified · keep %d · drop %d", p.Classified(), p.Keep, p.Drop)
	if i.info.RecordCount > 0 {
		desc = fmt.Sprintf("%d/%d classified · keep %d · drop %d", p.Classified(), i.info.RecordCount, p.Keep, p.Drop)
	}
	return desc
}

func newPicker() list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Collections"
	l.SetShowHelp(false)
	l.SetStatusBarItemName("collection", "collections")
	l.DisableQuitKeybindings()
	return l
}

func pickerItems(infos []service.CollectionInfo) []list.Item {
	items := make([]list.Item, 0, len(infos))
	for _, info := range infos {
		items = append(items, collectionItem{info: info})
	}
	return items
}

func (a *App) selectedCollection() (service.CollectionInfo, bool) {
	it, ok := a.picker.SelectedItem().(collectionItem)
	if !ok {
		return service.CollectionInfo{}, false
	}
	return it.info, true
}
