package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElements_ReturnsTopLevelOccurrencesInOrder(t *testing.T) {
	doc := `<SHOP><SHOPITEM id="1"><NAME>A</NAME></SHOPITEM><SHOPITEM id="2" import-code="x-2"><NAME>B</NAME></SHOPITEM></SHOP>`

	items, err := Elements(doc, "SHOPITEM")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "1", items[0].Attr("id"))
	assert.Equal(t, "2", items[1].Attr("id"))
	assert.Equal(t, "x-2", items[1].Attr("import-code"))
	assert.Equal(t, "", items[0].Attr("import-code"))
	assert.Equal(t, "<NAME>B</NAME>", items[1].Inner)
}

func TestElements_DoesNotMatchLongerTagNames(t *testing.T) {
	doc := `<IMAGES><IMAGE>a.jpg</IMAGE><IMAGE>b.jpg</IMAGE></IMAGES>`

	images, err := Elements(doc, "IMAGE")
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "a.jpg", images[0].Text())

	lists, err := Elements(doc, "IMAGES")
	require.NoError(t, err)
	assert.Len(t, lists, 1)
}

func TestElements_CaseSensitive(t *testing.T) {
	elements, err := Elements(`<name>x</name>`, "NAME")
	require.NoError(t, err)
	assert.Empty(t, elements)
}

func TestElements_SelfClosing(t *testing.T) {
	elements, err := Elements(`<VAT_RATE country="sk"/><VAT_RATE country="cz" />`, "VAT_RATE")
	require.NoError(t, err)
	require.Len(t, elements, 2)
	assert.Equal(t, "sk", elements[0].Attr("country"))
	assert.Equal(t, "cz", elements[1].Attr("country"))
	assert.Equal(t, "", elements[1].Inner)
}

func TestElements_UnterminatedElementIgnored(t *testing.T) {
	elements, err := Elements(`<CODE>a</CODE><CODE>b`, "CODE")
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, "a", elements[0].Text())
}

func TestElements_RejectsNesting(t *testing.T) {
	_, err := Elements(`<ITEM><ITEM>inner</ITEM></ITEM>`, "ITEM")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNestedElement)
}

func TestText_CleansValue(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"entities", `<NAME>Tea &amp;amp; Herbs &#233;</NAME>`, "Tea & Herbs é"},
		{"cdata", `<NAME><![CDATA[Green <b>tea</b>]]></NAME>`, "Green <b>tea</b>"},
		{"whitespace", "<NAME>\r\n  Green \t tea  \r\n</NAME>", "Green tea"},
		{"empty becomes absent", `<NAME>   </NAME>`, ""},
		{"missing", `<CODE>1</CODE>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Text(tt.doc, "NAME")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirst(t *testing.T) {
	el, ok, err := First(`<CODE>a</CODE><CODE>b</CODE>`, "CODE")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", el.Text())

	_, ok, err = First(`<EAN>1</EAN>`, "CODE")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWithout_RemovesNamedSections(t *testing.T) {
	doc := `<NAME>Top</NAME><VARIANTS><VARIANT><NAME>Inner</NAME></VARIANT></VARIANTS><CODE>T1</CODE>`

	out, err := Without(doc, "VARIANTS")
	require.NoError(t, err)
	assert.Equal(t, `<NAME>Top</NAME><CODE>T1</CODE>`, out)
}

func TestAttr_ValuesAreCleaned(t *testing.T) {
	elements, err := Elements(`<IMAGE description="Tea &amp; cup">x.jpg</IMAGE>`, "IMAGE")
	require.NoError(t, err)
	require.Len(t, elements, 1)
	assert.Equal(t, "Tea & cup", elements[0].Attr("description"))
}
