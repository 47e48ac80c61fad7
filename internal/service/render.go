package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"

	"github.com/go-pdf/fpdf"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/finsight/reportd/internal/adapter/ristretto"
	"github.com/finsight/reportd/internal/domain"
	"github.com/finsight/reportd/internal/domain/task"
	"github.com/finsight/reportd/internal/port/database"
)

// htmlPage wraps the converted report body in a minimal self-contained page.
var htmlPage = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Equity Research Report</title>
<style>
body { font-family: Georgia, serif; max-width: 800px; margin: 2rem auto; padding: 0 1rem; color: #1a1a1a; line-height: 1.6; }
h1, h2, h3 { font-family: Helvetica, Arial, sans-serif; }
h1 { border-bottom: 2px solid #1a1a1a; padding-bottom: .3rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #999; padding: .4rem .6rem; text-align: left; }
th { background: #eee; }
code { background: #f4f4f4; padding: .1rem .3rem; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// RenderService serves persisted report artifacts as raw markdown, HTML, or
// PDF. Rendered output is memoized in an in-process cache keyed by artifact
// path and format; artifacts are immutable once written, so entries never go
// stale.
type RenderService struct {
	store  database.Store
	cache  *ristretto.Cache
	md     goldmark.Markdown
	logger *slog.Logger
}

// NewRenderService creates a new render service.
func NewRenderService(store database.Store, cache *ristretto.Cache, logger *slog.Logger) *RenderService {
	return &RenderService{
		store: store,
		cache: cache,
		// No WithUnsafe: raw HTML in generated markdown is escaped on output.
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
		logger: logger,
	}
}

// ReadArtifact returns the task and its raw markdown artifact. The task must
// belong to the caller and have completed successfully; a pending or failed
// task yields domain.ErrNotReady, and a success record whose file is gone
// yields domain.ErrArtifactMissing.
func (s *RenderService) ReadArtifact(ctx context.Context, taskID, userID string) (*task.Task, []byte, error) {
	t, err := s.store.GetTask(ctx, taskID, userID)
	if err != nil {
		return nil, nil, err
	}

	if t.Status != task.StatusSuccess {
		return t, nil, fmt.Errorf("task %s is %s: %w", t.ID, t.Status, domain.ErrNotReady)
	}

	body, err := os.ReadFile(t.ReportPath) //nolint:gosec // G304: path written by this service
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil, fmt.Errorf("artifact for task %s: %w", t.ID, domain.ErrArtifactMissing)
		}
		return t, nil, fmt.Errorf("read artifact: %w", err)
	}
	return t, body, nil
}

// RenderHTML converts the task's markdown artifact into a standalone HTML page.
func (s *RenderService) RenderHTML(ctx context.Context, taskID, userID string) ([]byte, error) {
	t, body, err := s.ReadArtifact(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}

	key := "html:" + t.ReportPath
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	var converted bytes.Buffer
	if err := s.md.Convert(body, &converted); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}

	var page bytes.Buffer
	if err := htmlPage.Execute(&page, struct{ Body template.HTML }{template.HTML(converted.String())}); err != nil { //nolint:gosec // G203: body is goldmark output, raw HTML escaped
		return nil, fmt.Errorf("render page: %w", err)
	}

	out := page.Bytes()
	s.cache.Set(key, out)
	return out, nil
}

// RenderPDF converts the task's markdown artifact into a PDF document.
func (s *RenderService) RenderPDF(ctx context.Context, taskID, userID string) ([]byte, error) {
	t, body, err := s.ReadArtifact(ctx, taskID, userID)
	if err != nil {
		return nil, err
	}

	key := "pdf:" + t.ReportPath
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	out, err := markdownToPDF(body)
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	s.cache.Set(key, out)
	s.logger.Debug("rendered pdf", "task_id", t.ID, "bytes", len(out))
	return out, nil
}

func markdownToPDF(source []byte) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", 10)

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(source))

	r := &pdfRenderer{pdf: pdf, source: source, font: "Helvetica", size: 10}
	if err := ast.Walk(doc, r.walk); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// pdfRenderer walks the markdown AST and emits PDF drawing calls.
type pdfRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	font      string
	size      float64
	bold      bool
	italic    bool
	listLevel int
}

func (r *pdfRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(r.font, style, r.size)
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		r.heading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			r.pdf.Ln(8)
		}
	case ast.KindText:
		if entering {
			r.pdf.Write(5, string(n.Text(r.source)))
			if n.(*ast.Text).HardLineBreak() || n.(*ast.Text).SoftLineBreak() {
				r.pdf.Ln(5)
			}
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case ast.KindCodeSpan:
		if entering {
			r.pdf.SetFont("Courier", "", r.size)
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				if tn, ok := c.(*ast.Text); ok {
					r.pdf.Write(5, string(tn.Segment.Value(r.source)))
				}
			}
			return ast.WalkSkipChildren, nil
		}
		r.updateFont()
	case ast.KindFencedCodeBlock:
		if entering {
			r.codeBlock(n.(*ast.FencedCodeBlock).Lines())
			return ast.WalkSkipChildren, nil
		}
	case ast.KindCodeBlock:
		if entering {
			r.codeBlock(n.(*ast.CodeBlock).Lines())
			return ast.WalkSkipChildren, nil
		}
	case ast.KindList:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(3)
			}
		}
	case ast.KindListItem:
		if entering {
			r.pdf.Ln(5)
			r.pdf.SetX(15 + float64(r.listLevel)*5)
			r.pdf.Write(5, "- ")
		}
	case ast.KindThematicBreak:
		if entering {
			r.pdf.Ln(3)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(3)
		}
	case extast.KindTable:
		if entering {
			r.table(n.(*extast.Table))
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) heading(n *ast.Heading, entering bool) {
	if entering {
		r.pdf.Ln(6)
		size := 16.0 - float64(n.Level)*1.5
		if size < 10 {
			size = 10
		}
		r.pdf.SetFont(r.font, "B", size)
		return
	}
	r.pdf.Ln(7)
	r.updateFont()
}

func (r *pdfRenderer) codeBlock(lines *text.Segments) {
	r.pdf.Ln(2)
	r.pdf.SetFont("Courier", "", 9)
	r.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		r.pdf.MultiCell(0, 5, string(seg.Value(r.source)), "", "L", true)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.updateFont()
	r.pdf.Ln(2)
}

// table renders the table with equal column widths. Generated reports carry
// small numeric tables, so proportional sizing is not worth the complexity.
func (r *pdfRenderer) table(n *extast.Table) {
	var rows [][]string
	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			switch row := c.(type) {
			case *extast.TableRow:
				rows = append(rows, cellTexts(row, r.source))
			case *extast.TableHeader:
				collect(row)
			}
		}
	}
	collect(n)

	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	r.pdf.Ln(2)
	colWidth := 180.0 / float64(len(rows[0]))
	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont(r.font, "B", 8)
			r.pdf.SetFillColor(230, 230, 230)
		} else {
			r.pdf.SetFont(r.font, "", 8)
			r.pdf.SetFillColor(255, 255, 255)
		}
		for _, cell := range row {
			r.pdf.CellFormat(colWidth, 6, cell, "1", 0, "L", i == 0, 0, "")
		}
		r.pdf.Ln(-1)
	}
	r.pdf.Ln(3)
	r.updateFont()
}

func cellTexts(row ast.Node, source []byte) []string {
	var out []string
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		if cell, ok := c.(*extast.TableCell); ok {
			out = append(out, string(cell.Text(source)))
		}
	}
	return out
}
