package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestDetectEmailByExtension(t *testing.T) {
	path := writeTemp(t, "note.eml", []byte("not really rfc822 but has the extension"))
	typ, _, err := Detect(path)
	require.NoError(t, err)
	assert.Equal(t, models.EvidenceTypeEmail, typ)
}

func TestDetectEmailByRFC822Headers(t *testing.T) {
	raw := "From: alice@example.com\r\nTo: bob@example.com\r\nDate: Mon, 2 Jan 2023 15:04:05 +0000\r\nSubject: Hi\r\n\r\nBody text.\r\n"
	path := writeTemp(t, "message.txt", []byte(raw))
	typ, _, err := Detect(path)
	require.NoError(t, err)
	assert.Equal(t, models.EvidenceTypeEmail, typ)
}

func TestDetectImageByExtensionFallback(t *testing.T) {
	// A PNG magic-byte header is enough for the mimetype sniffer alone,
	// but keep the extension check as the documented secondary signal.
	png := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}
	path := writeTemp(t, "photo.png", png)
	typ, mimeType, err := Detect(path)
	require.NoError(t, err)
	assert.Equal(t, models.EvidenceTypeImage, typ)
	assert.Contains(t, mimeType, "image/")
}

func TestDetectDocumentByPrintableText(t *testing.T) {
	path := writeTemp(t, "memo", []byte("This is a plain-text memorandum with no extension at all.\n"))
	typ, _, err := Detect(path)
	require.NoError(t, err)
	assert.Equal(t, models.EvidenceTypeDocument, typ)
}

func TestDetectPDFByExtension(t *testing.T) {
	path := writeTemp(t, "contract.pdf", []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n"))
	typ, _, err := Detect(path)
	require.NoError(t, err)
	assert.Equal(t, models.EvidenceTypePDF, typ)
}

func TestDetectOtherForBinaryGarbage(t *testing.T) {
	garbage := make([]byte, 256)
	for i := range garbage {
		garbage[i] = byte(i)
	}
	path := writeTemp(t, "blob.bin", garbage)
	typ, _, err := Detect(path)
	require.NoError(t, err)
	assert.Equal(t, models.EvidenceTypeOther, typ)
}
