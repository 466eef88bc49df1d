package analyzer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"sort"
	"strings"
	"time"

	evterrors "github.com/evidence-toolkit/evidence-toolkit-sub003/internal/errors"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/llm"
	"github.com/evidence-toolkit/evidence-toolkit-sub003/internal/models"
)

// EmailMessage is one parsed message within a thread, the intermediate
// representation SPEC_FULL.md §4.6 describes before LLM analysis.
type EmailMessage struct {
	From       string
	To         []string
	CC         []string
	Date       time.Time
	Subject    string
	Body       string
	InReplyTo  string
	References []string
}

// EmailAnalyzer is the Email Analyzer (C6): RFC-822 parsing, thread
// reconstruction, and LLM structured extraction over the reconstructed
// thread.
type EmailAnalyzer struct {
	client *llm.Client
}

func NewEmailAnalyzer(client *llm.Client) *EmailAnalyzer {
	return &EmailAnalyzer{client: client}
}

// ParseEML parses an .eml (RFC-822) file into a single EmailMessage. When
// raw is an Outlook .msg file whose binary container does not happen to
// carry a parseable RFC-822 header block, this returns an Ingestion-kind
// error asking for .eml conversion (§4.6 — no .msg parser exists anywhere
// in the reference corpus, and that limitation is surfaced, not hidden).
func ParseEML(raw []byte) (*EmailMessage, error) {
	msg, err := mail.ReadMessage(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, evterrors.IngestionError(err, "could not parse as RFC-822; convert Outlook .msg files to .eml before ingest")
	}

	h := msg.Header
	date, _ := h.Date()

	body, err := extractBody(h, msg.Body)
	if err != nil {
		body = ""
	}

	return &EmailMessage{
		From:       firstAddress(h.Get("From")),
		To:         splitAddresses(h.Get("To")),
		CC:         splitAddresses(h.Get("Cc")),
		Date:       date,
		Subject:    strings.TrimSpace(h.Get("Subject")),
		Body:       body,
		InReplyTo:  strings.TrimSpace(h.Get("In-Reply-To")),
		References: strings.Fields(h.Get("References")),
	}, nil
}

func firstAddress(raw string) string {
	addrs := splitAddresses(raw)
	if len(addrs) == 0 {
		return raw
	}
	return addrs[0]
}

func splitAddresses(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	list, err := mail.ParseAddressList(raw)
	if err != nil {
		return []string{strings.TrimSpace(raw)}
	}
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.Address)
	}
	return out
}

// extractBody reads the message body, decoding a multipart/* container to
// its first text/plain part and a quoted-printable transfer encoding when
// present; anything else is returned as-is.
func extractBody(h mail.Header, r io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err == nil && strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(r, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", err
			}
			pType, _, _ := mime.ParseMediaType(part.Header.Get("Content-Type"))
			if pType == "" || strings.HasPrefix(pType, "text/plain") {
				return decodeBody(part, part.Header.Get("Content-Transfer-Encoding"))
			}
		}
		return "", nil
	}
	return decodeBody(r, h.Get("Content-Transfer-Encoding"))
}

func decodeBody(r io.Reader, encoding string) (string, error) {
	var reader io.Reader = r
	if strings.EqualFold(strings.TrimSpace(encoding), "quoted-printable") {
		reader = quotedprintable.NewReader(r)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReconstructThread orders messages by In-Reply-To/References when that
// forms a usable chain, falling back to subject-normalized time ordering
// (§4.6). A single-message "thread" is returned unchanged.
func ReconstructThread(messages []EmailMessage) []EmailMessage {
	if len(messages) <= 1 {
		return messages
	}

	hasReferences := false
	for _, m := range messages {
		if m.InReplyTo != "" || len(m.References) > 0 {
			hasReferences = true
			break
		}
	}

	ordered := make([]EmailMessage, len(messages))
	copy(ordered, messages)

	if hasReferences {
		sort.SliceStable(ordered, func(i, j int) bool {
			return len(ordered[i].References) < len(ordered[j].References)
		})
		return ordered
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := normalizeSubject(ordered[i].Subject), normalizeSubject(ordered[j].Subject)
		if si != sj {
			return si < sj
		}
		return ordered[i].Date.Before(ordered[j].Date)
	})
	return ordered
}

func normalizeSubject(subject string) string {
	s := strings.ToLower(strings.TrimSpace(subject))
	for {
		trimmed := strings.TrimPrefix(s, "re:")
		trimmed = strings.TrimPrefix(trimmed, "fwd:")
		trimmed = strings.TrimSpace(trimmed)
		if trimmed == s {
			break
		}
		s = trimmed
	}
	return s
}

// renderThread produces a bounded-length text rendering of a reconstructed
// thread for the LLM call, per §4.6.
func renderThread(messages []EmailMessage) string {
	var sb strings.Builder
	for i, m := range messages {
		fmt.Fprintf(&sb, "--- Message %d ---\nFrom: %s\nTo: %s\nDate: %s\nSubject: %s\n\n%s\n\n",
			i+1, m.From, strings.Join(m.To, ", "), m.Date.Format(time.RFC1123), m.Subject, m.Body)
	}
	rendered := sb.String()
	if len(rendered) > maxDocumentChars {
		rendered = rendered[:maxDocumentChars] + truncationMarker
	}
	return rendered
}

// Analyze reconstructs the thread and runs the LLM structured extraction.
// A nil, nil result means the provider refused (§4.5/§4.6 failure
// semantics apply identically here).
func (a *EmailAnalyzer) Analyze(ctx context.Context, modelID string, messages []EmailMessage) (*models.EmailThreadAnalysis, error) {
	thread := ReconstructThread(messages)
	userPrompt := renderThread(thread)

	raw, err := a.client.Complete(ctx, llm.Request{
		ModelID:      modelID,
		SystemPrompt: emailSystemPrompt,
		UserPrompt:   userPrompt,
		Schema:       emailThreadSchema(),
	})
	if err != nil {
		if isRefusal(err) {
			return nil, nil
		}
		return nil, err
	}

	var out models.EmailThreadAnalysis
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, evterrors.SchemaError(err, "email analyzer response did not parse as EmailThreadAnalysis")
	}
	if err := models.Validate(&out); err != nil {
		return nil, evterrors.SchemaError(err, "email thread analysis failed validation")
	}
	return &out, nil
}
