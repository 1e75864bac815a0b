package csvimport

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCSVParser(t *testing.T) {
	t.Run("BOM is stripped", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("\xEF\xBB\xBFtitle,amount\nRenewal,10"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"title", "amount"}, parser.Headers())
	})

	t.Run("empty file", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader("  \n"))
		assert.ErrorIs(t, err, ErrEmptyFile)
	})

	t.Run("latin-1 content is rejected", func(t *testing.T) {
		_, err := NewCSVParser(strings.NewReader("title\nM\xfcsteri"))
		assert.ErrorIs(t, err, ErrInvalidEncoding)
	})

	t.Run("semicolon delimiter is detected", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("urun;depo;siparis noktasi\nP-1;D-1;5"))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"urun", "depo", "siparis_noktasi"}, parser.Headers())
	})

	t.Run("explicit delimiter wins", func(t *testing.T) {
		parser, err := NewCSVParser(strings.NewReader("a;b|c\n1;2|3"), WithDelimiter('|'))
		require.NoError(t, err)
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"a;b", "c"}, parser.Headers())
	})
}

func TestTrimPartialRune(t *testing.T) {
	full := []byte("müşteri")
	assert.Equal(t, full, trimPartialRune(full))

	partial := append([]byte("ab"), "ş"[0])
	assert.Equal(t, []byte("ab"), trimPartialRune(partial))
}

func TestParseHeader(t *testing.T) {
	t.Run("names are normalized", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("  Title , Expected Close-Date ,OWNER_ID\nx,y,z"))
		require.NoError(t, parser.ParseHeader())
		assert.Equal(t, []string{"title", "expected_close_date", "owner_id"}, parser.Headers())
		assert.True(t, parser.HasHeader("owner_id"))
		assert.False(t, parser.HasHeader("amount"))
	})

	t.Run("duplicate after normalization", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("Title,title\nx,y"))
		assert.ErrorIs(t, parser.ParseHeader(), ErrDuplicateHeader)
	})

	t.Run("empty column name", func(t *testing.T) {
		parser, _ := NewCSVParser(strings.NewReader("title,,amount\nx,y,z"))
		var rowErr *RowError
		require.ErrorAs(t, parser.ParseHeader(), &rowErr)
		assert.Equal(t, 1, rowErr.Row)
	})
}

func TestReadRow(t *testing.T) {
	parser, _ := NewCSVParser(strings.NewReader("code,name,price,category\n001,Widget\n,,,\n002,\"Gadget, large\",9.5,tools"))
	require.NoError(t, parser.ParseHeader())

	row, err := parser.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, 2, row.LineNumber)
	assert.Equal(t, map[string]string{"code": "001", "name": "Widget", "price": "", "category": ""}, row.Data)

	blank, err := parser.ReadRow()
	require.NoError(t, err)
	assert.True(t, blank.IsEmpty())

	row, err = parser.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, "Gadget, large", row.Data["name"])
	assert.Equal(t, 4, row.LineNumber)

	_, err = parser.ReadRow()
	assert.Equal(t, io.EOF, err)
}

func TestParseRecords(t *testing.T) {
	t.Run("rows become records", func(t *testing.T) {
		recs, err := ParseRecords([]byte("title,amount\nRenewal,1200.50\n,\nUpsell,300\n"))
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, map[string]any{"title": "Renewal", "amount": "1200.50"}, recs[0])
		assert.Equal(t, "Upsell", recs[1]["title"])
	})

	t.Run("quoted multiline field", func(t *testing.T) {
		recs, err := ParseRecords([]byte("title,notes\nRenewal,\"line 1\nline 2\""))
		require.NoError(t, err)
		assert.Equal(t, "line 1\nline 2", recs[0]["notes"])
	})

	t.Run("header only", func(t *testing.T) {
		_, err := ParseRecords([]byte("title,amount\n"))
		assert.ErrorIs(t, err, ErrNoDataRows)
	})
}

func TestSplitRecords(t *testing.T) {
	recs := make([]map[string]any, 5)
	for i := range recs {
		recs[i] = map[string]any{"i": i}
	}

	chunks := SplitRecords(recs, 2)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 2)
	assert.Len(t, chunks[2], 1)
	assert.Equal(t, 4, chunks[2][0]["i"])

	assert.Len(t, SplitRecords(recs, 0), 1)
	assert.Nil(t, SplitRecords(nil, 10))
}
