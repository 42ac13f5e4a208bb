// Package filtering narrows bundled content lists by category.
package filtering

import (
	"github.com/samber/lo"
)

// All is the category that disables filtering.
const All = "All"

// ByCategory returns the items whose category equals category exactly. All
// returns every item. An unknown category yields an empty, non-nil slice.
// The input is never modified.
func ByCategory[T any](items []T, category string, categoryOf func(T) string) []T {
	if category == All {
		return append(make([]T, 0, len(items)), items...)
	}
	return lo.Filter(items, func(item T, _ int) bool {
		return categoryOf(item) == category
	})
}

// Categories lists All followed by every distinct category in first-seen
// order.
func Categories[T any](items []T, categoryOf func(T) string) []string {
	return append([]string{All}, lo.Uniq(lo.Map(items, func(item T, _ int) string {
		return categoryOf(item)
	}))...)
}

// Normalize maps an empty selection to All.
func Normalize(category string) string {
	if category == "" {
		return All
	}
	return category
}
