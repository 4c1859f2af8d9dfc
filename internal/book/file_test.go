package book

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenameExtension(t *testing.T) {
	cases := map[string]string{
		"chapters/one.bade":   "chapters/one.xhtml",
		"chapters/two.rxhtml": "chapters/two.xhtml",
		"intro.md":            "intro.xhtml",
		"style/main.styl":     "style/main.css",
		"images/cover.png":    "images/cover.png",
		"plain.xhtml":         "plain.xhtml",
		"noext":               "noext",
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			require.Equal(t, want, RenameExtension(in))
		})
	}
}

func TestGroupExtensions(t *testing.T) {
	require.True(t, GroupText.Contains(".rxhtml"))
	require.True(t, GroupImage.Contains(".JPG"))
	require.False(t, GroupFont.Contains(".css"))
	require.True(t, GroupAny.Contains(".anything"))

	_, ok := Group("video").Extensions()
	require.False(t, ok)
	require.False(t, Group("video").Valid())

	require.True(t, IsStaticExtension(".ttf"))
	require.False(t, IsStaticExtension(".styl"))
	require.False(t, IsStaticExtension(".md"))
}

func TestContentLifecycle(t *testing.T) {
	f := NewFile("intro", GroupText)
	require.False(t, f.HasContent())

	f.SetContentString("")
	require.True(t, f.HasContent(), "empty content still counts as generated")

	f.ClearContent()
	require.False(t, f.HasContent())
	require.Nil(t, f.Content())
}

func TestMergeWith(t *testing.T) {
	cover := NewFile("cover.png", GroupImage)
	cover.AddProperty(CoverImageProperty)

	existing := &File{RealSourcePath: "/book/images/cover.png", DestinationPath: "images/cover.png"}
	existing.AddDependency("/book/a")
	cover.AddDependency("/book/a")
	cover.AddDependency("/book/b")

	existing.MergeWith(cover)

	require.Equal(t, "cover.png", existing.SourcePattern)
	require.Equal(t, GroupImage, existing.Group)
	require.True(t, existing.OnlyOne)
	require.Equal(t, []string{"/book/a", "/book/b"}, existing.Dependencies)
	require.True(t, existing.HasProperty(CoverImageProperty))
	require.Equal(t, "/book/images/cover.png", existing.RealSourcePath)
}

func TestSameAs(t *testing.T) {
	a := NewFile("intro", GroupText)
	b := NewFile("intro", GroupText)
	require.True(t, a.SameAs(a))
	require.True(t, a.SameAs(b), "unresolved files with equal pattern")

	a.RealSourcePath = "/book/intro.md"
	a.DestinationPath = "intro.xhtml"
	require.False(t, a.SameAs(b))

	c := &File{DestinationPath: "intro.xhtml"}
	require.True(t, a.SameAs(c))
}
