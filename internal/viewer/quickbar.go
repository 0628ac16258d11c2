package viewer

import (
	"fmt"
	"strings"

	"eve-data-hub/internal/logger"
	"eve-data-hub/internal/staticdata"
)

// QuickbarAdd appends the item to the quickbar unless an entry with the same
// type id is already present. Returns true when the list changed.
func (c *Controller) QuickbarAdd(typeID int32) bool {
	item, ok := c.items[typeID]
	if !ok {
		logger.Warn("Quickbar", fmt.Sprintf("Item %d not in flat index, not adding", typeID))
		return false
	}

	items := c.state.Quickbar()
	for _, it := range items {
		if it.TypeID == typeID {
			return false
		}
	}
	items = append(items, item)
	c.commitQuickbar(items)
	return true
}

// QuickbarRemove removes the entry with typeID. Returns true when the list
// changed.
func (c *Controller) QuickbarRemove(typeID int32) bool {
	items := c.state.Quickbar()
	for i, it := range items {
		if it.TypeID == typeID {
			items = append(items[:i], items[i+1:]...)
			c.commitQuickbar(items)
			return true
		}
	}
	return false
}

// QuickbarClear empties the quickbar.
func (c *Controller) QuickbarClear() {
	c.commitQuickbar(nil)
}

// QuickbarExport renders the quickbar in the in-game import format, one item
// name per line.
func (c *Controller) QuickbarExport() string {
	items := c.state.Quickbar()
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return strings.Join(names, "\n")
}

// QuickbarImport adds every line of text that matches a known item name,
// case-insensitively. Lines that resolve to nothing are skipped. Returns the
// number of items added.
func (c *Controller) QuickbarImport(text string) int {
	byName := make(map[string]staticdata.FlatItem, len(c.flatIndex))
	for _, it := range c.flatIndex {
		byName[strings.ToLower(it.Name)] = it
	}

	items := c.state.Quickbar()
	present := make(map[int32]bool, len(items))
	for _, it := range items {
		present[it.TypeID] = true
	}

	added := 0
	for _, line := range strings.Split(text, "\n") {
		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		it, ok := byName[strings.ToLower(name)]
		if !ok || present[it.TypeID] {
			continue
		}
		items = append(items, it)
		present[it.TypeID] = true
		added++
	}
	if added > 0 {
		c.commitQuickbar(items)
	}
	return added
}

// commitQuickbar updates state and persists the whole list.
func (c *Controller) commitQuickbar(items []staticdata.FlatItem) {
	c.state.setQuickbar(items)
	if c.store != nil {
		c.store.SaveQuickbar(items)
	}
}
