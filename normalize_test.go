package pdf2xml

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, s string) *etree.Document {
	t.Helper()
	doc, err := ParseTree([]byte(s))
	require.NoError(t, err)
	return doc
}

func serialize(t *testing.T, doc *etree.Document) string {
	t.Helper()
	doc.WriteSettings.CanonicalEndTags = true
	s, err := doc.WriteToString()
	require.NoError(t, err)
	return s
}

// childTags lists the element children of the element at path.
func childTags(doc *etree.Document, path string) []string {
	var tags []string
	for _, e := range doc.FindElement(path).ChildElements() {
		tags = append(tags, e.Tag)
	}
	return tags
}

func TestNormalize(t *testing.T) {
	doc := parse(t, "<pages>\n<page id=\"1\">\n<text>a</text>\n<word>w1</word>\n<text>b</text>\n<word>w2</word>\n</page>\n</pages>\n")

	_, err := Normalize(doc, DocInfo{Title: "T", Producer: "P"})
	require.NoError(t, err)

	want := "<pages>\n" +
		"<Document>\n<DocInfo>\n<Title>T</Title>\n<Producer>P</Producer>\n<Creator></Creator>\n<CreationDate></CreationDate>\n</DocInfo>\n</Document>\n" +
		"<page id=\"1\">\n<word>w1</word>\n<word>w2</word>\n<text>a</text>\n<text>b</text>\n</page>\n" +
		"</pages>\n"
	if diff := cmp.Diff(want, serialize(t, doc)); diff != "" {
		t.Errorf("normalized tree mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_Containers(t *testing.T) {
	doc := parse(t, `<pages>
<page id="1">
<textbox id="0">
<textline><text>H</text><text>i</text><word>Hi</word><text> </text><word>yo</word></textline>
<textline><text>x</text></textline>
</textbox>
<figure name="F1"><text>f</text><word>fw</word></figure>
<rect/>
</page>
</pages>`)

	_, err := Normalize(doc, DocInfo{})
	require.NoError(t, err)

	assert.Equal(t, []string{"word", "word", "text", "text", "text"}, childTags(doc, "pages/page/textbox/textline[1]"))
	assert.Equal(t, []string{"text"}, childTags(doc, "pages/page/textbox/textline[2]"))
	assert.Equal(t, []string{"word", "text"}, childTags(doc, "pages/page/figure"))
	assert.Equal(t, []string{"textbox", "figure", "rect"}, childTags(doc, "pages/page"))

	var words []string
	for _, w := range doc.FindElements("pages/page/textbox/textline[1]/word") {
		words = append(words, w.Text())
	}
	assert.Equal(t, []string{"Hi", "yo"}, words)
}

func TestNormalize_FigureOnlyPage(t *testing.T) {
	in := "<pages><page id=\"1\"><figure name=\"Im1\"><image width=\"2\" height=\"2\"></image></figure></page></pages>"
	doc := parse(t, in)

	_, err := Normalize(doc, DocInfo{})
	require.NoError(t, err)

	got := serialize(t, doc)
	assert.Contains(t, got, "<page id=\"1\"><figure name=\"Im1\"><image width=\"2\" height=\"2\"></image></figure></page>")
}

func TestNormalize_OnlyDirectChildren(t *testing.T) {
	doc := parse(t, "<pages><page><section><text>a</text><word>w</word></section><figure><g><text>b</text><word>v</word></g></figure></page></pages>")

	_, err := Normalize(doc, DocInfo{})
	require.NoError(t, err)

	assert.Equal(t, []string{"text", "word"}, childTags(doc, "pages/page/section"))
	assert.Equal(t, []string{"text", "word"}, childTags(doc, "pages/page/figure/g"))
}

func TestNormalize_DocInfoFirst(t *testing.T) {
	doc := parse(t, "<?xml version=\"1.0\" encoding=\"utf-8\" ?>\n<pages>\n<page id=\"1\"></page>\n</pages>\n")

	_, err := Normalize(doc, DocInfo{Title: "Report", CreationDate: "D:20240101"})
	require.NoError(t, err)

	root := doc.Root()
	first := root.ChildElements()[0]
	assert.Equal(t, "Document", first.Tag)
	require.Len(t, first.ChildElements(), 1)
	info := first.ChildElements()[0]
	assert.Equal(t, "DocInfo", info.Tag)

	var fields [][2]string
	for _, e := range info.ChildElements() {
		fields = append(fields, [2]string{e.Tag, e.Text()})
	}
	want := [][2]string{{"Title", "Report"}, {"Producer", ""}, {"Creator", ""}, {"CreationDate", "D:20240101"}}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Errorf("DocInfo fields mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_EmptyRoot(t *testing.T) {
	doc := parse(t, "<pages/>")

	_, err := Normalize(doc, DocInfo{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, "<pages><Document>\n<DocInfo>\n<Title>x</Title>\n<Producer></Producer>\n<Creator></Creator>\n<CreationDate></CreationDate>\n</DocInfo>\n</Document>\n</pages>", serialize(t, doc))
}

func TestNormalize_NoRoot(t *testing.T) {
	_, err := Normalize(etree.NewDocument(), DocInfo{})
	assert.ErrorIs(t, err, ErrMalformedTree)
}

func TestReorder_Idempotent(t *testing.T) {
	doc := parse(t, "<line>\n<text>a</text>\n<word>w</word>\n<text>b</text>\n<word>v</word>\n</line>")
	line := doc.Root()

	Reorder(line)
	once := serialize(t, doc)
	Reorder(line)
	assert.Equal(t, once, serialize(t, doc))
	assert.Equal(t, "<line>\n<word>w</word>\n<word>v</word>\n<text>a</text>\n<text>b</text>\n</line>", once)
}

func TestReorder_NoWordsOrTexts(t *testing.T) {
	in := "<page>\n<textbox>x</textbox>\n<rect/>\n</page>"
	doc := parse(t, in)
	Reorder(doc.Root())
	assert.Equal(t, "<page>\n<textbox>x</textbox>\n<rect></rect>\n</page>", serialize(t, doc))
}

func TestParseTree(t *testing.T) {
	doc, err := ParseTree([]byte("<?xml version=\"1.0\" encoding=\"windows-1252\" ?>\n<pages><text>Caf\xe9</text></pages>"))
	require.NoError(t, err)
	assert.Equal(t, "Café", doc.FindElement("pages/text").Text())

	setDeclaredEncoding(doc, "utf-8")
	out := serialize(t, doc)
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="utf-8" ?>`), out)
	assert.Contains(t, out, "Café")
}

func TestParseTree_TrailingWhitespace(t *testing.T) {
	doc, err := ParseTree([]byte("<?xml version=\"1.0\" ?>\n<pages><page/></pages>\n\n"))
	require.NoError(t, err)
	assert.Equal(t, "pages", doc.Root().Tag)
}

func TestParseTree_Malformed(t *testing.T) {
	for name, in := range map[string]string{
		"truncated": "<pages><page>",
		"no root":   "<?xml version=\"1.0\" ?>\n",
		"empty":     "",
		"two roots": "<pages><page/></pages><junk/>",
		"trailing":  "<pages><page/></pages>trailing",
		"leading":   "text<pages><page/></pages>",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTree([]byte(in))
			assert.ErrorIs(t, err, ErrMalformedTree)
		})
	}
}
