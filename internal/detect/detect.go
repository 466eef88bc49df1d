// Package detect implements the Type Detector & Ingestor (C2): classifying
// a file into an EvidenceType by the contractual check ordering of
// SPEC_FULL.md §4.2 (email, then video, then audio, then image, then
// document, then pdf, then other).
package detect

import (
	"bufio"
	"bytes"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

var (
	emailExtensions = map[string]bool{".eml": true, ".msg": true}
	videoExtensions = map[string]bool{".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".webm": true}
	audioExtensions = map[string]bool{".mp3": true, ".wav": true, ".flac": true, ".m4a": true, ".ogg": true}
	imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".tiff": true, ".webp": true}
)

// sniffWindow is how much of the file's head is read for MIME sniffing
// and the RFC-822/printable-text heuristics.
const sniffWindow = 4096

// Detect classifies a file at path into an EvidenceType, following the
// contractual ordering: email, video, audio, image, document, pdf, other.
// MIME sniffing (gabriel-vasile/mimetype) is the primary signal for
// steps 2-6; extension checks are a secondary signal layered on top.
func Detect(path string) (models.EvidenceType, string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	head := make([]byte, sniffWindow)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", "", err
	}
	head = head[:n]

	mtype := mimetype.Detect(head)
	mimeStr := mtype.String()

	// (1) email: extension, or RFC-822 headers present in the head window.
	if emailExtensions[ext] || looksLikeRFC822(head) {
		return models.EvidenceTypeEmail, mimeStr, nil
	}

	// (2) video
	if strings.HasPrefix(mimeStr, "video/") || videoExtensions[ext] {
		return models.EvidenceTypeVideo, mimeStr, nil
	}

	// (3) audio
	if strings.HasPrefix(mimeStr, "audio/") || audioExtensions[ext] {
		return models.EvidenceTypeAudio, mimeStr, nil
	}

	// (4) image
	if strings.HasPrefix(mimeStr, "image/") || imageExtensions[ext] {
		return models.EvidenceTypeImage, mimeStr, nil
	}

	// (5) document: text MIME, or ≥90% printable bytes in the head window.
	if strings.HasPrefix(mimeStr, "text/") || isReadableText(head) {
		return models.EvidenceTypeDocument, mimeStr, nil
	}

	// (6) pdf: magic bytes (mimetype.Detect already recognizes %PDF-) or extension
	if mimeStr == "application/pdf" || ext == ".pdf" {
		return models.EvidenceTypePDF, mimeStr, nil
	}

	return models.EvidenceTypeOther, mimeStr, nil
}

// looksLikeRFC822 checks for a parseable RFC-822 header block, the
// secondary email signal alongside the .eml/.msg extension check.
func looksLikeRFC822(head []byte) bool {
	if len(head) == 0 {
		return false
	}
	msg, err := mail.ReadMessage(bufio.NewReader(bytes.NewReader(head)))
	if err != nil {
		return false
	}
	_, hasFrom := msg.Header["From"]
	_, hasDate := msg.Header["Date"]
	return hasFrom || hasDate
}

// isReadableText applies the ≥90%-printable-bytes heuristic over the head
// window, used as the document fallback when MIME sniffing reports a
// generic octet-stream (common for extensionless text files).
func isReadableText(head []byte) bool {
	if len(head) == 0 {
		return false
	}
	printable := 0
	total := 0
	for len(head) > 0 {
		r, size := utf8.DecodeRune(head)
		if r == utf8.RuneError && size <= 1 {
			head = head[1:]
			total++
			continue
		}
		total++
		if r == '\n' || r == '\r' || r == '\t' || (r >= 0x20 && r != 0x7f) {
			printable++
		}
		head = head[size:]
	}
	if total == 0 {
		return false
	}
	return float64(printable)/float64(total) >= 0.90
}
