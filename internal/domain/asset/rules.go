package asset

import "sort"

// ConsolidateMaps keeps one row per asset id and reports every asset whose
// versions disagree on name. Conflicting assets are left out of the result.
func ConsolidateMaps(maps []Map) ([]Map, []Conflict) {
	return consolidate(maps,
		func(m Map) string { return m.AssetID },
		func(m Map) []field { return []field{{"name", m.Name}} },
	)
}

// ConsolidateModes checks both name and context.
func ConsolidateModes(modes []Mode) ([]Mode, []Conflict) {
	return consolidate(modes,
		func(m Mode) string { return m.AssetID },
		func(m Mode) []field { return []field{{"name", m.Name}, {"context", m.Context}} },
	)
}

func ConsolidatePlaylists(playlists []Playlist) ([]Playlist, []Conflict) {
	return consolidate(playlists,
		func(p Playlist) string { return p.AssetID },
		func(p Playlist) []field { return []field{{"name", p.Name}} },
	)
}

type field struct {
	name  string
	value string
}

func consolidate[T any](items []T, key func(T) string, fields func(T) []field) ([]T, []Conflict) {
	order := make([]string, 0, len(items))
	grouped := make(map[string][]T, len(items))
	for _, item := range items {
		k := key(item)
		if _, ok := grouped[k]; !ok {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], item)
	}

	out := make([]T, 0, len(order))
	var conflicts []Conflict
	for _, k := range order {
		group := grouped[k]
		groupConflicts := conflictsOf(k, group, fields)
		if len(groupConflicts) > 0 {
			conflicts = append(conflicts, groupConflicts...)
			continue
		}
		out = append(out, group[0])
	}

	return out, conflicts
}

func conflictsOf[T any](assetID string, group []T, fields func(T) []field) []Conflict {
	if len(group) < 2 {
		return nil
	}

	first := fields(group[0])
	seen := make([]map[string]struct{}, len(first))
	for i, f := range first {
		seen[i] = map[string]struct{}{f.value: {}}
	}
	for _, item := range group[1:] {
		for i, f := range fields(item) {
			seen[i][f.value] = struct{}{}
		}
	}

	var out []Conflict
	for i, f := range first {
		if len(seen[i]) < 2 {
			continue
		}
		values := make([]string, 0, len(seen[i]))
		for v := range seen[i] {
			values = append(values, v)
		}
		sort.Strings(values)
		out = append(out, Conflict{AssetID: assetID, Field: f.name, Values: values})
	}
	return out
}
