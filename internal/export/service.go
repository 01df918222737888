package export

import (
	"context"
	"fmt"
	"html/template"
	"os/exec"
	"time"
)

// Service turns record content into a downloadable file.
type Service struct {
	lookPath   func(string) (string, error)
	pdfTimeout time.Duration
	now        func() time.Time
}

func NewService() *Service {
	return &Service{
		lookPath:   exec.LookPath,
		pdfTimeout: 30 * time.Second,
		now:        time.Now,
	}
}

func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	base := sanitizeFilename(req.Title)

	switch req.Format {
	case FormatDOCX:
		data, err := BuildDOCX(req.Title, Flatten(req.Content))
		if err != nil {
			return nil, fmt.Errorf("build docx: %w", err)
		}
		return &Result{Data: data, Filename: base + ".docx", MimeType: mimeDOCX}, nil

	case FormatPDF:
		body, err := RenderHTML(req.Content)
		if err != nil {
			return nil, fmt.Errorf("render markdown: %w", err)
		}
		html, err := RenderDocumentHTML(TemplateData{
			Title:       req.Title,
			ContentHTML: template.HTML(body),
			GeneratedAt: s.now(),
		})
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		data, err := s.printPDF(ctx, html)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Filename: base + ".pdf", MimeType: mimePDF}, nil

	case FormatMarkdown:
		return &Result{Data: []byte(req.Content), Filename: base + ".md", MimeType: mimeMarkdown}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}
