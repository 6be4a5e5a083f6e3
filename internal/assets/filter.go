package assets

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cjl-github/chiwen/internal/errors"
	"github.com/cjl-github/chiwen/internal/platform"
)

// Category narrows assets by operating system family.
type Category string

// Categories offered by the asset list.
const (
	CategoryAll     Category = "all"
	CategoryLinux   Category = "linux"
	CategoryWindows Category = "windows"
)

// ParseCategory validates a category name. "" means all.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case "", CategoryAll:
		return CategoryAll, nil
	case CategoryLinux, CategoryWindows:
		return c, nil
	default:
		return "", errors.NewInputInvalidError(fmt.Sprintf("unknown category %q (want all, linux or windows)", s))
	}
}

// Matches reports whether a belongs to the category.
func (c Category) Matches(a Asset) bool {
	switch c {
	case CategoryLinux, CategoryWindows:
		return strings.Contains(strings.ToLower(a.OS()), string(c))
	default:
		return true
	}
}

// Query selects assets for display.
type Query struct {
	// Search matches hostname or IP, case-insensitively.
	Search   string
	Category Category
	// Status, when set, keeps only assets in that state.
	Status platform.AssetStatus
}

// Filter returns the assets matching q, preserving order.
func Filter(items []Asset, q Query) []Asset {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Asset, 0, len(items))
	for _, a := range items {
		if search != "" &&
			!strings.Contains(strings.ToLower(a.Hostname), search) &&
			!strings.Contains(strings.ToLower(a.IP()), search) {
			continue
		}
		if !q.Category.Matches(a) {
			continue
		}
		if q.Status != "" && a.Status != q.Status {
			continue
		}
		out = append(out, a)
	}
	return out
}

// TreeNode is one entry of the OS grouping.
type TreeNode struct {
	Label    string     `json:"label" yaml:"label"`
	ID       string     `json:"id,omitempty" yaml:"id,omitempty"`
	Children []TreeNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// Tree groups assets under Linux and Windows nodes with their counts. Hosts
// with any other OS are listed under Other when present.
func Tree(items []Asset) TreeNode {
	groups := []struct {
		name string
		cat  Category
	}{
		{"Linux", CategoryLinux},
		{"Windows", CategoryWindows},
	}

	root := TreeNode{Label: "All devices"}
	grouped := make(map[string]bool, len(items))
	for _, g := range groups {
		var children []TreeNode
		for _, a := range items {
			if g.cat.Matches(a) {
				children = append(children, TreeNode{Label: a.Hostname, ID: ID(a)})
				grouped[ID(a)] = true
			}
		}
		root.Children = append(root.Children, TreeNode{
			Label:    fmt.Sprintf("%s (%d)", g.name, len(children)),
			Children: children,
		})
	}

	var other []TreeNode
	for _, a := range items {
		if !grouped[ID(a)] {
			other = append(other, TreeNode{Label: a.Hostname, ID: ID(a)})
		}
	}
	if len(other) > 0 {
		root.Children = append(root.Children, TreeNode{
			Label:    fmt.Sprintf("Other (%d)", len(other)),
			Children: other,
		})
	}
	return root
}

// ParseLabels turns key=value pairs into a label map. A pair with an
// empty key is rejected.
func ParseLabels(pairs []string) (map[string]string, error) {
	labels := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, errors.NewInputInvalidError(fmt.Sprintf("label %q must be key=value", p))
		}
		labels[k] = strings.TrimSpace(v)
	}
	return labels, nil
}

// LabelKeys returns a's label keys sorted.
func LabelKeys(a Asset) []string {
	keys := make([]string, 0, len(a.Labels))
	for k := range a.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MergeLabels returns current with set applied and the remove keys deleted.
// current is not modified.
func MergeLabels(current, set map[string]string, remove []string) map[string]string {
	out := make(map[string]string, len(current)+len(set))
	for k, v := range current {
		out[k] = v
	}
	for k, v := range set {
		out[k] = v
	}
	for _, k := range remove {
		delete(out, k)
	}
	return out
}
