package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTable() Table {
	return Table{
		Title:   "Documents",
		Headers: []string{"document_id", "file_name"},
		Rows: [][]string{
			{"d1", "contract.pdf"},
			{"d2", "quote, \"draft\".docx"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleTable())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "document_id,file_name", lines[0])
	assert.Equal(t, `d2,"quote, ""draft"".docx"`, lines[2])
}

func TestPDFExporterRender(t *testing.T) {
	table := sampleTable()
	for i := 0; i < 120; i++ {
		table.Rows = append(table.Rows, []string{"id", strings.Repeat("very long name ", 10)})
	}
	out, err := NewPDFExporter().Render(table)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderRejectsRaggedRows(t *testing.T) {
	_, err := NewCSVExporter().Render(Table{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}})
	assert.Error(t, err)

	_, err = NewPDFExporter().Render(Table{})
	assert.Error(t, err)
}

func TestForFormat(t *testing.T) {
	r, err := ForFormat("PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", r.ContentType())

	r, err = ForFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, r.Extension())

	_, err = ForFormat("xlsx")
	assert.Error(t, err)
}
