package htmlutil

import (
	"context"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const page = `<html><body>
<div id="list">
	<a href="/one">  One  </a>
	<a href="https://example.org/two">Two
	  <span class="ad">sponsored</span></a>
	<a href="">   </a>
</div>
<script>var x = 1;</script>
</body></html>`

func TestCleanText(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)

	RemoveChild(doc.Selection, ".ad, script")
	require.Equal(t, 0, doc.Find(".ad").Length())
	require.Equal(t, "One Two", CleanText(doc.Find("#list").Text()))
	require.Equal(t, "a b", CleanText(" \ta \x00  b\n"))
}

func TestGetText(t *testing.T) {
	doc, err := ParseString(`<p>a<b>b</b><i>c</i></p>`)
	require.NoError(t, err)
	require.Equal(t, "abc", GetText(doc.Find("p").Nodes[0]))
	require.Equal(t, "", GetText(nil))
}

func TestGetAnchors(t *testing.T) {
	doc, err := ParseString(page)
	require.NoError(t, err)
	RemoveChild(doc.Selection, "span")

	base, err := url.Parse("https://example.com/dir/")
	require.NoError(t, err)

	anchors := GetAnchors(context.Background(), doc.Find("#list a").Slice(0, 2), base)
	expected := []Anchor{
		{Name: "One", Href: "https://example.com/one"},
		{Name: "Two", Href: "https://example.org/two"},
	}
	if diff := cmp.Diff(expected, anchors); diff != "" {
		t.Fatal(diff)
	}
}
