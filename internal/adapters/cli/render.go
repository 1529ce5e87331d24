package cli

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fatih/color"

	"github.com/kirillkom/docchat/internal/core/domain"
)

type palette struct {
	success *color.Color
	failure *color.Color
	info    *color.Color
	muted   *color.Color
	bold    *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		success: color.New(color.FgGreen),
		failure: color.New(color.FgRed),
		info:    color.New(color.FgCyan),
		muted:   color.New(color.Faint),
		bold:    color.New(color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.success, p.failure, p.info, p.muted, p.bold} {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) notification(w io.Writer, n *domain.Notification) {
	if n == nil {
		return
	}
	switch n.Kind {
	case domain.NotificationSuccess:
		p.success.Fprintf(w, "✓ %s\n", n.Message)
	case domain.NotificationError:
		p.failure.Fprintf(w, "✗ %s\n", n.Message)
	default:
		p.info.Fprintf(w, "• %s\n", n.Message)
	}
}

func (p palette) uploadStatus(w io.Writer, s *domain.UploadStatus) {
	if s == nil {
		return
	}
	if s.Outcome == domain.UploadOutcomeSuccess {
		p.success.Fprintf(w, "✓ %s\n", s.Message)
		if s.Document != nil {
			p.muted.Fprintf(w, "  id=%s chunks=%d\n", s.Document.ID, s.Document.ChunksCount)
		}
		return
	}
	p.failure.Fprintf(w, "✗ %s\n", s.Message)
}

func (p palette) documents(w io.Writer, docs []domain.Document, pending []string, loading bool) {
	if loading {
		p.muted.Fprintln(w, "Loading documents...")
		return
	}
	if len(docs) == 0 {
		p.muted.Fprintln(w, "No documents uploaded yet.")
		return
	}
	deleting := make(map[string]struct{}, len(pending))
	for _, id := range pending {
		deleting[id] = struct{}{}
	}
	p.bold.Fprintf(w, "Documents (%d)\n", len(docs))
	for _, doc := range docs {
		line := fmt.Sprintf("  %-36s  %-30s  %-4s  %3d chunks  %s",
			doc.ID, doc.Filename, strings.ToUpper(string(doc.FileType)), doc.ChunksCount, formatDate(doc.UploadDate))
		if _, ok := deleting[doc.ID]; ok {
			p.muted.Fprintf(w, "%s  (deleting...)\n", line)
			continue
		}
		fmt.Fprintln(w, line)
	}
}

func (p palette) entry(w io.Writer, e domain.TranscriptEntry) {
	switch e.Role {
	case domain.RoleUser:
		p.bold.Fprintf(w, "you> %s\n", e.Content)
	case domain.RoleError:
		p.failure.Fprintf(w, "error> %s\n", e.Content)
	default:
		fmt.Fprintf(w, "assistant> %s\n", e.Content)
		if len(e.Sources) > 0 {
			p.muted.Fprintf(w, "  Sources: %s\n", strings.Join(e.Sources, ", "))
		}
		if e.Confidence != nil {
			p.muted.Fprintf(w, "  Confidence: %d%%\n", int(math.Round(*e.Confidence*100)))
		}
	}
}

func (p palette) degraded(w io.Writer, baseURL string) {
	p.failure.Fprintln(w, "Backend Unavailable")
	fmt.Fprintln(w, domain.MessageBackendUnavailable)
	fmt.Fprintln(w)
	p.bold.Fprintln(w, "To start the backend:")
	fmt.Fprintln(w, "  1. Navigate to the backend directory")
	fmt.Fprintln(w, "  2. Install dependencies: pip install -r requirements.txt")
	fmt.Fprintln(w, "  3. Set your OpenAI API key in a .env file")
	fmt.Fprintln(w, "  4. Run: uvicorn app.main:app --reload")
	if baseURL != "" {
		fmt.Fprintf(w, "  5. Make sure it listens on %s, then restart docchat\n", baseURL)
	}
}

func formatDate(ts domain.Timestamp) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}

const helpText = `Commands:
  upload <path>        upload a PDF, DOCX or TXT file (max 10MB)
  list                 show uploaded documents
  reload               fetch the document list again
  delete <id>          delete a document
  scope <id...>|all    limit questions to the given documents
  ask <question>       ask about your documents (a bare line also asks)
  history              show the conversation
  status               show session state
  dismiss              clear the current notification and error
  help                 show this help
  quit                 exit`
