package domtree_test

import (
	"strings"
	"testing"

	"github.com/sgml-go/sgml"
	"github.com/sgml-go/sgml/domtree"
	"github.com/stretchr/testify/require"
)

func TestBuildNestsChildrenUnderParent(t *testing.T) {
	r, err := sgml.NewReader(strings.NewReader(`<a x="1"><b>hi</b><c/></a>`), sgml.WithIgnoreDTD(true))
	require.NoError(t, err)

	root, err := domtree.Build(r)
	require.NoError(t, err)
	require.Len(t, root.Children, 1)

	a := root.Children[0]
	require.Equal(t, "a", a.Name)
	v, ok := a.Attr("x")
	require.True(t, ok)
	require.Equal(t, "1", v)
	require.Len(t, a.Children, 2)

	b := a.Children[0]
	require.Equal(t, "b", b.Name)
	require.Len(t, b.Children, 1)
	require.Equal(t, "hi", b.Children[0].Value)

	c := a.Children[1]
	require.Equal(t, "c", c.Name)
	require.Empty(t, c.Children)
}

func TestWalkVisitsDepthFirst(t *testing.T) {
	r, err := sgml.NewReader(strings.NewReader(`<a><b/><c/></a>`), sgml.WithIgnoreDTD(true))
	require.NoError(t, err)
	root, err := domtree.Build(r)
	require.NoError(t, err)

	var names []string
	domtree.Walk(root, func(n *domtree.Node) bool {
		if n.Name != "" {
			names = append(names, n.Name)
		}
		return true
	})
	require.Equal(t, []string{"a", "b", "c"}, names)
}
