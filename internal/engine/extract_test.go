package engine

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/porticus-lab/go-pdf2xml/internal/pdftest"
)

func extract(t *testing.T, opts Options, pdfs ...[]byte) (string, map[string][]byte) {
	t.Helper()
	var inputs []Input
	for i, data := range pdfs {
		inputs = append(inputs, Input{Name: fmt.Sprintf("in%d.pdf", i), Data: data})
	}
	if opts.Codec == "" {
		opts.Codec = "utf-8"
	}
	var buf bytes.Buffer
	info, err := Extract(context.Background(), inputs, &buf, opts)
	require.NoError(t, err)
	return buf.String(), info
}

// wellFormed fails the test when out is not parseable XML.
func wellFormed(t *testing.T, out string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(out))
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	for {
		_, err := dec.Token()
		if err == io.EOF {
			return
		}
		require.NoError(t, err)
	}
}

func TestExtractText(t *testing.T) {
	out, _ := extract(t, Options{OutputType: TypeText, Params: DefaultParams()},
		pdftest.BuildPDF(
			"BT /F1 12 Tf 100 700 Td (Page one) Tj ET",
			"BT /F1 12 Tf 100 700 Td (Page two) Tj ET",
		))
	assert.Equal(t, "Page one\n\n\fPage two\n\n\f", out)
}

func TestExtractTJKerning(t *testing.T) {
	out, _ := extract(t, Options{OutputType: TypeText, Params: DefaultParams()},
		pdftest.BuildPDF("BT /F1 14 Tf 50 750 Td [(Go) -500 (PDF)] TJ ET"))
	assert.Equal(t, "Go PDF\n\n\f", out)
}

func TestExtractXML(t *testing.T) {
	out, _ := extract(t, Options{OutputType: TypeXML, Params: DefaultParams()},
		pdftest.BuildPDF("BT /F1 12 Tf 100 700 Td (Hi there) Tj ET"))
	wellFormed(t, out)

	assert.True(t, strings.HasPrefix(out, "<?xml version=\"1.0\" encoding=\"utf-8\" ?>\n<pages>\n"))
	assert.Contains(t, out, `<page id="1" bbox="0.000,0.000,612.000,792.000" rotate="0">`)
	assert.Contains(t, out, `<textbox id="0" bbox="100.000,700.000,148.000,712.000">`)

	want := strings.Join([]string{
		`<textline bbox="100.000,700.000,148.000,712.000">`,
		`<text font="Helvetica" bbox="100.000,700.000,106.000,712.000" size="12.000">H</text>`,
		`<text font="Helvetica" bbox="106.000,700.000,112.000,712.000" size="12.000">i</text>`,
		`<word bbox="100.000,700.000,112.000,712.000">Hi</word>`,
		`<text font="Helvetica" bbox="112.000,700.000,118.000,712.000" size="12.000"> </text>`,
	}, "\n")
	assert.Contains(t, out, want)
	assert.Contains(t, out, "<word bbox=\"118.000,700.000,148.000,712.000\">there</word>\n<text>\n</text>\n</textline>")
	assert.True(t, strings.HasSuffix(out, "</page>\n</pages>\n"))
}

func TestExtractXMLWithoutLayout(t *testing.T) {
	out, _ := extract(t, Options{OutputType: TypeXML},
		pdftest.BuildPDF("BT /F1 12 Tf 100 700 Td (Hi there) Tj ET"))
	wellFormed(t, out)

	assert.NotContains(t, out, "<textbox")
	assert.Contains(t, out, `<word bbox="100.000,700.000,112.000,712.000">Hi</word>`)
	assert.Contains(t, out, `<word bbox="118.000,700.000,148.000,712.000">there</word>`)
}

func TestExtractFormFigure(t *testing.T) {
	d := pdftest.NewDoc()
	form := d.Add(pdftest.Stream(
		fmt.Sprintf("/Type /XObject /Subtype /Form /BBox [0 0 200 50] /Resources << /Font << /F1 %d 0 R >> >>", d.Font),
		"BT /F1 10 Tf 0 10 Td (ab cd) Tj ET"))
	d.Resources = fmt.Sprintf("/XObject << /Fm1 %d 0 R >>", form)
	out, _ := extract(t, Options{OutputType: TypeXML, Params: DefaultParams()},
		d.Build("q 1 0 0 1 100 600 cm /Fm1 Do Q"))
	wellFormed(t, out)

	start := strings.Index(out, `<figure name="Fm1" bbox="100.000,600.000,300.000,650.000">`)
	word := strings.Index(out, `<word bbox="100.000,610.000,110.000,620.000">ab</word>`)
	end := strings.Index(out, "</figure>")
	require.True(t, start >= 0 && word >= 0 && end >= 0, "figure or word missing:\n%s", out)
	assert.True(t, start < word && word < end, "word must be inside the figure")
	assert.NotContains(t, out, "<textbox", "figure text is not analyzed without AllTexts")
}

func TestExtractImage(t *testing.T) {
	d := pdftest.NewDoc()
	img := d.Add(pdftest.Stream("/Type /XObject /Subtype /Image /Width 2 /Height 2 /ColorSpace /DeviceGray /BitsPerComponent 8",
		"\x00\x40\x80\xff"))
	d.Resources = fmt.Sprintf("/XObject << /Im1 %d 0 R >>", img)
	dir := t.TempDir()

	out, _ := extract(t, Options{OutputType: TypeXML, Params: DefaultParams(), OutputDir: dir},
		d.Build("q 100 0 0 100 50 50 cm /Im1 Do Q"))
	wellFormed(t, out)

	assert.Contains(t, out, "<figure name=\"Im1\" bbox=\"50.000,50.000,150.000,150.000\">\n<image src=\"Im1.bmp\" width=\"2\" height=\"2\" />\n</figure>")
	data, err := os.ReadFile(filepath.Join(dir, "Im1.bmp"))
	require.NoError(t, err)
	assert.Equal(t, "BM", string(data[:2]))
}

func TestExtractTag(t *testing.T) {
	out, _ := extract(t, Options{OutputType: TypeTag},
		pdftest.BuildPDF("/P <</MCID 0>> BDC BT /F1 12 Tf 72 700 Td (Hello) Tj ET EMC"))
	wellFormed(t, out)
	assert.Contains(t, out, `<page id="1" bbox="0.000,0.000,612.000,792.000" rotate="0"><P MCID="0">Hello</P></page>`)
}

func TestExtractHTML(t *testing.T) {
	out, _ := extract(t, Options{OutputType: TypeHTML, Params: DefaultParams(), Scale: 2},
		pdftest.BuildPDF("BT /F1 12 Tf 100 700 Td (Hi) Tj ET"))
	assert.Contains(t, out, `content="text/html; charset=utf-8"`)
	assert.Contains(t, out, `<a name="1">Page 1</a>`)
	assert.Contains(t, out, `left:200px; top:210px;`)
	assert.Contains(t, out, `<span style="font-family: Helvetica; font-size:24px">Hi</span><br>`)
	assert.True(t, strings.HasSuffix(out, "</body></html>\n"))
}

func TestExtractRotation(t *testing.T) {
	out, _ := extract(t, Options{OutputType: TypeXML, Params: DefaultParams(), Rotation: 90},
		pdftest.BuildPDF("BT ET"))
	assert.Contains(t, out, `<page id="1" bbox="0.000,0.000,792.000,612.000" rotate="90">`)
}

func TestExtractPageSelection(t *testing.T) {
	pdf := pdftest.BuildPDF(
		"BT /F1 12 Tf 100 700 Td (One) Tj ET",
		"BT /F1 12 Tf 100 700 Td (Two) Tj ET",
		"BT /F1 12 Tf 100 700 Td (Three) Tj ET",
	)

	out, _ := extract(t, Options{OutputType: TypeText, Params: DefaultParams(), Pages: []int{2, 0}}, pdf)
	assert.Equal(t, "One\n\n\fThree\n\n\f", out)

	out, _ = extract(t, Options{OutputType: TypeText, Params: DefaultParams(), MaxPages: 2}, pdf)
	assert.Equal(t, "One\n\n\fTwo\n\n\f", out)
}

func TestExtractMultipleInputs(t *testing.T) {
	first := pdftest.BuildPDF("BT ET")
	d := pdftest.NewDoc()
	d.Info("/Title (Second)")
	second := d.Build("BT ET")

	out, info := extract(t, Options{OutputType: TypeXML, Params: DefaultParams()}, first, second)
	wellFormed(t, out)
	assert.Equal(t, 1, strings.Count(out, "<pages>"))
	assert.Contains(t, out, `<page id="1"`)
	assert.Contains(t, out, `<page id="2"`)
	assert.Equal(t, "Second", string(info["Title"]))
}

func TestExtractCodec(t *testing.T) {
	out, _ := extract(t, Options{OutputType: TypeXML, Params: DefaultParams(), Codec: "latin1"},
		pdftest.BuildPDF(`BT /F1 12 Tf 100 700 Td (Caf\351) Tj ET`))
	assert.Contains(t, out, `encoding="windows-1252"`)
	assert.Contains(t, out, "Caf\xe9</word>")
}

func TestExtractStripControl(t *testing.T) {
	pdf := pdftest.BuildPDF(`BT /F1 12 Tf 100 700 Td (A\001B) Tj ET`)

	out, _ := extract(t, Options{OutputType: TypeXML, Params: DefaultParams(), StripControl: true}, pdf)
	wellFormed(t, out)
	assert.Contains(t, out, ">AB</word>")

	out, _ = extract(t, Options{OutputType: TypeXML, Params: DefaultParams()}, pdf)
	assert.Contains(t, out, "A\x01B</word>")
}

func TestExtractErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Extract(ctx, []Input{{Name: "x", Data: pdftest.BuildPDF("BT ET")}}, io.Discard, Options{Codec: "no-such-codec"})
	assert.ErrorIs(t, err, ErrUnsupportedCodec)

	_, err = Extract(ctx, []Input{{Name: "x", Data: []byte("not a pdf")}}, io.Discard, Options{Codec: "utf-8"})
	assert.ErrorIs(t, err, ErrNotPDF)

	d := pdftest.NewDoc()
	d.Trailer = " /Encrypt << /Filter /Standard >>"
	_, err = Extract(ctx, []Input{{Name: "x", Data: d.Build("BT ET")}}, io.Discard, Options{Codec: "utf-8", Password: "secret"})
	assert.ErrorIs(t, err, ErrEncrypted)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Extract(cancelled, []Input{{Name: "x", Data: pdftest.BuildPDF("BT ET")}}, io.Discard, Options{Codec: "utf-8"})
	assert.ErrorIs(t, err, context.Canceled)
}
