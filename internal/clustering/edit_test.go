package clustering

import (
	"testing"

	"appscout/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	a := core.NewCluster("Budget", []string{"budget app", "expense tracker"}, "Track spending")
	b := core.NewCluster("Savings", []string{"expense tracker", "savings goal", "Budget App"}, "Save money")

	merged := Merge(a, b, "Personal Finance")

	assert.Equal(t, "Personal Finance", merged.Name)
	assert.Equal(t, []string{"budget app", "expense tracker", "savings goal", "Budget App"}, merged.Keywords)
	assert.Equal(t, len(merged.Keywords), merged.KeywordCount)
	assert.Equal(t, "Track spending + Save money", merged.Theme)
	assert.NotEqual(t, a.ID, merged.ID)
	assert.NotEqual(t, b.ID, merged.ID)
}

func TestSplit_Conservation(t *testing.T) {
	c := core.NewCluster("Fitness", []string{"workout", "yoga", "running", "meditation", "pilates"}, "Exercise")

	original, extracted := Split(c, []string{"meditation", "yoga", "not-a-member"}, "Mindfulness")

	assert.Equal(t, []string{"workout", "running", "pilates"}, original.Keywords)
	assert.Equal(t, []string{"meditation", "yoga"}, extracted.Keywords)
	assert.Equal(t, len(original.Keywords), original.KeywordCount)
	assert.Equal(t, len(extracted.Keywords), extracted.KeywordCount)
	assert.Equal(t, SplitTheme, extracted.Theme)
	assert.Equal(t, c.ID, original.ID)
	assert.NotEqual(t, c.ID, extracted.ID)

	union := append(append([]string{}, original.Keywords...), extracted.Keywords...)
	assert.ElementsMatch(t, c.Keywords, union)
	for _, kw := range extracted.Keywords {
		assert.NotContains(t, original.Keywords, kw)
	}

	// input is untouched
	assert.Len(t, c.Keywords, 5)
}

func TestRenameAndRemove(t *testing.T) {
	a := core.NewCluster("A", []string{"a"}, "t")
	b := core.NewCluster("B", []string{"b"}, "t")

	renamed := Rename(a, "Alpha")
	assert.Equal(t, "Alpha", renamed.Name)
	assert.Equal(t, a.ID, renamed.ID)

	list := Remove([]core.Cluster{a, b}, a.ID)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	assert.Len(t, Remove(list, "missing"), 1)

	found, ok := Find([]core.Cluster{a, b}, b.ID)
	assert.True(t, ok)
	assert.Equal(t, "B", found.Name)
}
