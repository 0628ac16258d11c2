package staticdata

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// infoKey is the reserved taxonomy key carrying group metadata. It is a
// variant of its own, never a category.
const infoKey = "_info"

// unknownCategory is the displayable fallback path for items whose position
// in the taxonomy cannot be resolved. It is valid output, not an error.
const unknownCategory = "Unknown Category"

// GroupInfo is the metadata attached to a taxonomy category via "_info".
type GroupInfo struct {
	MarketGroupID int32  `json:"marketGroupID"`
	Name          string `json:"name"`
	IconFile      string `json:"iconFile"`
}

// Item is one leaf of the item taxonomy. Only published items with a
// well-formed typeID are indexable.
type Item struct {
	TypeID    int32
	TypeName  string
	Published bool
	IconFile  string
}

// UnmarshalJSON tolerates typeID arriving as either a number or a numeric
// string, which both occur in the bundled data.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw struct {
		TypeID    json.RawMessage `json:"typeID"`
		TypeName  string          `json:"typeName"`
		Published bool            `json:"published"`
		IconFile  string          `json:"iconFile"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	it.TypeName = raw.TypeName
	it.Published = raw.Published
	it.IconFile = raw.IconFile
	it.TypeID = coerceTypeID(raw.TypeID)
	return nil
}

func coerceTypeID(raw json.RawMessage) int32 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n <= 0 {
		return 0
	}
	return int32(n)
}

// TaxonomyNode is one node of the market group tree: a category with named
// children, or a list of items. Category nodes may additionally carry
// GroupInfo from the reserved "_info" key. Exactly one of Children/Items is
// populated, which replaces the runtime type-sniffing of the source data.
type TaxonomyNode struct {
	Info     *GroupInfo
	Children map[string]*TaxonomyNode
	Items    []Item

	// order preserves the source mapping's key order so that flattening
	// and breadcrumb search are deterministic.
	order []string
}

// IsCategory reports whether the node is a category (has named children).
func (n *TaxonomyNode) IsCategory() bool { return n.Children != nil }

// ChildNames returns the category's child labels in source order,
// excluding the metadata variant.
func (n *TaxonomyNode) ChildNames() []string { return n.order }

// UnmarshalJSON decodes either variant. Arrays become item lists; objects
// become categories with key order preserved via token streaming.
func (n *TaxonomyNode) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty taxonomy node")
	}
	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &n.Items)
	}
	if trimmed[0] != '{' {
		return fmt.Errorf("taxonomy node is neither object nor array")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil { // opening brace
		return err
	}
	n.Children = make(map[string]*TaxonomyNode)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("taxonomy key is not a string: %v", tok)
		}
		if key == infoKey {
			var info GroupInfo
			if err := dec.Decode(&info); err != nil {
				return fmt.Errorf("%s: %w", infoKey, err)
			}
			n.Info = &info
			continue
		}
		var child TaxonomyNode
		if err := dec.Decode(&child); err != nil {
			return fmt.Errorf("group %q: %w", key, err)
		}
		n.Children[key] = &child
		n.order = append(n.order, key)
	}
	return nil
}

// FlatItem is one entry of the searchable flat item index.
type FlatItem struct {
	TypeID int32  `json:"type_id"`
	Name   string `json:"name"`
}

// FlattenItems builds the flat item index by depth-first traversal in source
// order, skipping metadata nodes and unpublished or malformed items.
func FlattenItems(root *TaxonomyNode) []FlatItem {
	var out []FlatItem
	var walk func(n *TaxonomyNode)
	walk = func(n *TaxonomyNode) {
		if n == nil {
			return
		}
		if !n.IsCategory() {
			for _, it := range n.Items {
				if it.Published && it.TypeID > 0 && strings.TrimSpace(it.TypeName) != "" {
					out = append(out, FlatItem{TypeID: it.TypeID, Name: strings.TrimSpace(it.TypeName)})
				}
			}
			return
		}
		for _, name := range n.order {
			walk(n.Children[name])
		}
	}
	walk(root)
	return out
}

// Breadcrumb returns the first depth-first path of category labels leading to
// the list containing typeID. The key holding the list itself is a structural
// wrapper (conventionally "items"), not a category, and is excluded from the
// path. Items that cannot be located get the "Unknown Category" sentinel.
func Breadcrumb(root *TaxonomyNode, typeID int32) []string {
	var found []string
	var walk func(n *TaxonomyNode, trail []string) bool
	walk = func(n *TaxonomyNode, trail []string) bool {
		if n == nil || !n.IsCategory() {
			return false
		}
		for _, name := range n.order {
			child := n.Children[name]
			if !child.IsCategory() {
				for _, it := range child.Items {
					if it.TypeID == typeID {
						for _, seg := range trail {
							if seg != "items" {
								found = append(found, seg)
							}
						}
						return true
					}
				}
				continue
			}
			if walk(child, append(trail, name)) {
				return true
			}
		}
		return false
	}
	if !walk(root, nil) || len(found) == 0 {
		return []string{unknownCategory}
	}
	return found
}

// FindGroup locates a category node by its label, depth first. Used for
// drill-down from breadcrumb and search selection.
func FindGroup(root *TaxonomyNode, label string) *TaxonomyNode {
	if root == nil || !root.IsCategory() {
		return nil
	}
	for _, name := range root.order {
		child := root.Children[name]
		if name == label && child.IsCategory() {
			return child
		}
		if got := FindGroup(child, label); got != nil {
			return got
		}
	}
	return nil
}
