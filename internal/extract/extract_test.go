package extract

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestText_Plain(t *testing.T) {
	out, err := Text("job_desc.txt", []byte("Go engineer\nRemote"))
	require.NoError(t, err)
	assert.Equal(t, "Go engineer\nRemote", out)

	out, err = Text("notes", []byte("no extension"))
	require.NoError(t, err)
	assert.Equal(t, "no extension", out)
}

func TestText_InvalidUTF8(t *testing.T) {
	_, err := Text("resume.txt", []byte{0xff, 0xfe, 0xfd})
	assert.ErrorIs(t, err, ErrNotText)
}

func TestText_DOCX(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Worked on </w:t></w:r><w:r><w:t>backend systems.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Skills:</w:t><w:tab/><w:t>Go</w:t></w:r></w:p>
  </w:body>
</w:document>`

	out, err := Text("Resume.DOCX", buildDOCX(t, doc))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nWorked on backend systems.\nSkills:\tGo", out)
}

func TestText_DOCXMissingDocument(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = Text("resume.docx", buf.Bytes())
	assert.Error(t, err)
}

func TestText_BrokenFiles(t *testing.T) {
	_, err := Text("resume.docx", []byte("not a zip"))
	assert.Error(t, err)

	_, err = Text("resume.pdf", []byte("not a pdf"))
	assert.Error(t, err)
}
