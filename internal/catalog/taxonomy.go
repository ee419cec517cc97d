package catalog

import (
	"sort"
	"strings"
)

const (
	pathSeparator  = "|"
	levelSeparator = ">"
	tagJoiner      = ", "
)

// CategoryPair is the category/subcategory taken from a taxonomy string
type CategoryPair struct {
	Category    string
	Subcategory string
}

// splitTaxonomy returns the trimmed levels of every category path
func splitTaxonomy(raw string) [][]string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var paths [][]string
	for _, path := range strings.Split(raw, pathSeparator) {
		levels := strings.Split(path, levelSeparator)
		for i := range levels {
			levels[i] = strings.TrimSpace(levels[i])
		}
		paths = append(paths, levels)
	}
	return paths
}

// DeepestTags returns the sorted, distinct deepest level of every path
func DeepestTags(raw string) []string {
	set := make(map[string]bool)
	for _, levels := range splitTaxonomy(raw) {
		for i := len(levels) - 1; i >= 0; i-- {
			if levels[i] != "" {
				set[levels[i]] = true
				break
			}
		}
	}
	return sortedKeys(set)
}

// ExtractTags renders the deepest tags of a taxonomy string as a
// comma-separated list, e.g. "All > Shoes > Running|All > Shoes > Trail"
// becomes "Running, Trail".
func ExtractTags(raw string) string {
	return strings.Join(DeepestTags(raw), tagJoiner)
}

// SingleTags returns the sorted, distinct second level of every path
// that has at least two levels
func SingleTags(raw string) []string {
	set := make(map[string]bool)
	for _, levels := range splitTaxonomy(raw) {
		if len(levels) >= 2 && levels[1] != "" {
			set[levels[1]] = true
		}
	}
	return sortedKeys(set)
}

// SingleTag picks the representative top-level tag of a product
func SingleTag(raw string) string {
	tags := SingleTags(raw)
	if len(tags) == 0 {
		return ""
	}
	return tags[0]
}

// ExtractCategory returns level 1 and 2 of the first path with at least
// three levels. Both fields are empty when no such path exists.
func ExtractCategory(raw string) CategoryPair {
	for _, levels := range splitTaxonomy(raw) {
		if len(levels) >= 3 {
			return CategoryPair{Category: levels[1], Subcategory: levels[2]}
		}
	}
	return CategoryPair{}
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
