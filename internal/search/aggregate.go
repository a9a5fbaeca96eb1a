package search

import "github.com/hyperjump/mulefind/internal/models"

// Aggregate merges hits that refer to the same content.
//
// Hits are grouped by ContentKey in first-appearance order. Every member of a group gets
// the group's summed Sources (the input hits are updated in place), then only the first
// hit of each distinct Name is kept. Nil entries are skipped.
func Aggregate(hits []*models.Hit) []*models.Hit {
	groups := groupBy(hits, (*models.Hit).ContentKey)

	for _, group := range groups {
		sources := 0
		for _, h := range group {
			sources += h.Sources
		}
		for _, h := range group {
			h.Sources = sources
		}
	}

	out := make([]*models.Hit, 0, len(hits))
	for _, group := range groups {
		for _, byName := range groupBy(group, func(h *models.Hit) string { return h.Name }) {
			out = append(out, byName[0])
		}
	}
	return out
}

// groupBy partitions hits by key, keeping groups and members in first-appearance order.
func groupBy(hits []*models.Hit, key func(*models.Hit) string) [][]*models.Hit {
	index := make(map[string]int)
	var groups [][]*models.Hit
	for _, h := range hits {
		if h == nil {
			continue
		}
		k := key(h)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], h)
	}
	return groups
}

// FilterHits keeps the hits whose Name matches the given matcher, in order.
func FilterHits(hits []*models.Hit, match func(name string) bool) []*models.Hit {
	out := make([]*models.Hit, 0, len(hits))
	for _, h := range hits {
		if match(h.Name) {
			out = append(out, h)
		}
	}
	return out
}
