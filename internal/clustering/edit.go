package clustering

import "appscout/internal/core"

// SplitTheme is the theme given to clusters carved out by Split.
const SplitTheme = "User-defined split"

// Merge combines a and b into a new cluster named newName. Keywords are the
// ordered, case-sensitive union (a's first) and the themes are joined.
func Merge(a, b core.Cluster, newName string) core.Cluster {
	seen := make(map[string]struct{}, len(a.Keywords)+len(b.Keywords))
	var keywords []string
	for _, kw := range append(append([]string{}, a.Keywords...), b.Keywords...) {
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}

	theme := a.Theme
	switch {
	case a.Theme == "":
		theme = b.Theme
	case b.Theme != "":
		theme = a.Theme + " + " + b.Theme
	}
	return core.NewCluster(newName, keywords, theme)
}

// Split moves the members of subset out of c into a new cluster named
// newName. Subset entries that are not in c are ignored. The remainder
// keeps c's id, name and theme.
func Split(c core.Cluster, subset []string, newName string) (original, extracted core.Cluster) {
	members := make(map[string]struct{}, len(c.Keywords))
	for _, kw := range c.Keywords {
		members[kw] = struct{}{}
	}

	moved := make(map[string]struct{}, len(subset))
	var taken []string
	for _, kw := range subset {
		if _, ok := members[kw]; !ok {
			continue
		}
		if _, dup := moved[kw]; dup {
			continue
		}
		moved[kw] = struct{}{}
		taken = append(taken, kw)
	}

	remainder := make([]string, 0, len(c.Keywords))
	for _, kw := range c.Keywords {
		if _, ok := moved[kw]; !ok {
			remainder = append(remainder, kw)
		}
	}

	original = c
	original.Keywords = remainder
	original.KeywordCount = len(remainder)
	extracted = core.NewCluster(newName, taken, SplitTheme)
	return original, extracted
}

// Rename returns c with a new name.
func Rename(c core.Cluster, name string) core.Cluster {
	c.Name = name
	return c
}

// Remove returns clusters without the one with the given id.
func Remove(clusters []core.Cluster, id string) []core.Cluster {
	out := make([]core.Cluster, 0, len(clusters))
	for _, c := range clusters {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the cluster with the given id.
func Find(clusters []core.Cluster, id string) (core.Cluster, bool) {
	for _, c := range clusters {
		if c.ID == id {
			return c, true
		}
	}
	return core.Cluster{}, false
}
