package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raine/catalog-feed-import/internal/uniq"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"Tea > Green Tea", []string{"Tea", "Green Tea"}},
		{"  Tea >>  Green    Tea > ", []string{"Tea", "Green Tea"}},
		{"Tea", []string{"Tea"}},
		{" > > ", nil},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePath(tt.raw))
		})
	}

	assert.Equal(t, "Tea > Green Tea", PathKey("Tea>Green Tea"))
}

func TestBuildCategoryTree_SharedParent(t *testing.T) {
	tree := BuildCategoryTree([]string{"Tea > Green Tea", "Tea > Black Tea"})

	require.Equal(t, 3, tree.Len())
	roots := tree.GetRoots()
	require.Len(t, roots, 1)
	assert.Equal(t, "Tea", roots[0].Key)

	children := tree.GetChildren("Tea")
	require.Len(t, children, 2)
	assert.Equal(t, "Tea > Black Tea", children[0].Key)
	assert.Equal(t, "Black Tea", children[0].Title)
	assert.Equal(t, "Tea > Green Tea", children[1].Key)
	assert.Equal(t, 1, children[1].Depth)
	assert.Equal(t, "Tea", children[1].ParentKey)

	assert.True(t, tree.IsLeaf("Tea > Green Tea"))
	assert.False(t, tree.IsLeaf("Tea"))
	assert.True(t, tree.IsLeaf("Coffee"))
	assert.Nil(t, tree.GetNode("Coffee"))
	assert.Nil(t, tree.GetChildren("Coffee"))
}

func TestBuildCategoryTree_OneNodePerPrefix(t *testing.T) {
	tree := BuildCategoryTree([]string{"A > B > C > D", "A > B", "A>B>C>D"})

	assert.Equal(t, 4, tree.Len())
	nodes := tree.Nodes()
	for i, node := range nodes {
		assert.Equal(t, i, node.Depth)
	}
	assert.Equal(t, "A > B > C > D", nodes[3].Key)
}

func TestAssignHandles_ParentsFirst(t *testing.T) {
	tree := BuildCategoryTree([]string{"Tea > Green Tea", "Tea > Black Tea"})

	seeds, handles := tree.AssignHandles(uniq.NewSet(uniq.MaxHandleLength))

	require.Len(t, seeds, 3)
	assert.Equal(t, CategorySeed{
		Name:     "Tea",
		Handle:   "tea",
		IsActive: true,
		Metadata: map[string]any{"source_path": "Tea", "depth": 0},
	}, seeds[0])
	assert.Equal(t, "black-tea", seeds[1].Handle)
	assert.Equal(t, "tea", seeds[1].ParentHandle)
	assert.Equal(t, "green-tea", seeds[2].Handle)
	assert.Equal(t, "tea", seeds[2].ParentHandle)

	handle, ok := handles.Resolve(" Tea >  Green Tea ")
	require.True(t, ok)
	assert.Equal(t, "green-tea", handle)

	_, ok = handles.Resolve("Coffee")
	assert.False(t, ok)
	_, ok = handles.Resolve("")
	assert.False(t, ok)
}

func TestAssignHandles_SameTitleUnderDifferentParents(t *testing.T) {
	tree := BuildCategoryTree([]string{"Women > Shoes", "Men > Shoes"})

	seeds, handles := tree.AssignHandles(uniq.NewSet(uniq.MaxHandleLength))
	require.Len(t, seeds, 4)

	assert.Equal(t, "shoes", handles["Men > Shoes"])
	assert.Equal(t, "shoes-2", handles["Women > Shoes"])
	assert.Equal(t, "women", seeds[3].ParentHandle)
}

func TestAssignHandles_HandlesBoundedAndUnique(t *testing.T) {
	long := strings.Repeat("Very Long Category Name ", 10)
	paths := []string{
		long + " > " + long + "A",
		long + " > " + long + "B",
		"??? > !!!",
	}
	tree := BuildCategoryTree(paths)

	seeds, _ := tree.AssignHandles(uniq.NewSet(uniq.MaxHandleLength))

	seen := map[string]bool{}
	for _, s := range seeds {
		require.NotEmpty(t, s.Handle)
		assert.LessOrEqual(t, len(s.Handle), uniq.MaxHandleLength)
		assert.False(t, seen[s.Handle], "duplicate handle %q", s.Handle)
		seen[s.Handle] = true
	}
	assert.True(t, seen["category"])
	assert.True(t, seen["category-2"])
}
