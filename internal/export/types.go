// Package export renders record content to downloadable DOCX, PDF and Markdown files.
package export

import (
	"errors"
	"strings"
)

type Format string

const (
	FormatDOCX     Format = "docx"
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "md"
)

func ParseFormat(value string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case FormatDOCX, "":
		return FormatDOCX, true
	case FormatPDF:
		return FormatPDF, true
	case FormatMarkdown, "markdown":
		return FormatMarkdown, true
	default:
		return "", false
	}
}

// Request is one export of a single record's markdown content.
type Request struct {
	Title   string
	Content string
	Format  Format
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

const (
	mimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePDF      = "application/pdf"
	mimeMarkdown = "text/markdown; charset=utf-8"
)

var (
	ErrUnsupportedFormat = errors.New("export format not supported")
	// ErrPDFDependencyMissing indicates no headless Chrome binary could be found.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
