package export

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"html/template"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFlatten(t *testing.T) {
	source := "# Biology Quiz\n\n" +
		"Answer all questions.\n\n" +
		"Q1 - What is a cell?\nQ2 - Define **osmosis**.\n\n" +
		"## Notes\n\n" +
		"- first point\n- second [link](http://example.com)\n\n" +
		"3. third\n4. fourth\n\n" +
		"> quoted text\n\n" +
		"---\n\n" +
		"```\ncode line 1\ncode line 2\n```\n" +
		"<div>raw</div>\n"

	got := Flatten(source)
	want := []Paragraph{
		{"Biology Quiz", StyleHeading1},
		{"Answer all questions.", StyleNormal},
		{"Q1 - What is a cell?", StyleNormal},
		{"Q2 - Define osmosis.", StyleNormal},
		{"Notes", StyleHeading2},
		{"• first point", StyleList},
		{"• second link", StyleList},
		{"3. third", StyleList},
		{"4. fourth", StyleList},
		{"quoted text", StyleQuote},
		{"", StyleRule},
		{"code line 1", StyleCode},
		{"code line 2", StyleCode},
	}

	if len(got) != len(want) {
		t.Fatalf("Flatten() returned %d paragraphs, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("paragraph %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestFlattenDeepHeadingsUseHeading3(t *testing.T) {
	got := Flatten("#### Deep\n")
	if len(got) != 1 || got[0].Style != StyleHeading3 {
		t.Fatalf("Flatten() = %+v", got)
	}
}

func TestFlattenEmpty(t *testing.T) {
	if got := Flatten(""); len(got) != 0 {
		t.Fatalf("Flatten(\"\") = %+v", got)
	}
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open docx zip: %v", err)
	}
	files := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		raw, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		files[f.Name] = string(raw)
	}
	return files
}

func TestBuildDOCX(t *testing.T) {
	data, err := BuildDOCX("Quiz <1>", []Paragraph{
		{Text: "Section", Style: StyleHeading1},
		{Text: "Q1 - A & B?", Style: StyleNormal},
		{Style: StyleRule},
	})
	if err != nil {
		t.Fatalf("BuildDOCX() error = %v", err)
	}

	files := readZip(t, data)
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/_rels/document.xml.rels", "word/document.xml", "word/styles.xml"} {
		if _, ok := files[name]; !ok {
			t.Fatalf("docx missing part %s", name)
		}
	}

	doc := files["word/document.xml"]
	if strings.Count(doc, "<w:p>") != 4 {
		t.Fatalf("expected 4 paragraphs (title + 3), got document %s", doc)
	}
	for _, fragment := range []string{
		`<w:pStyle w:val="Title"/></w:pPr><w:r><w:t xml:space="preserve">Quiz &lt;1&gt;</w:t>`,
		`<w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t xml:space="preserve">Section</w:t>`,
		`Q1 - A &amp; B?`,
		`<w:pStyle w:val="Rule"/></w:pPr></w:p>`,
	} {
		if !strings.Contains(doc, fragment) {
			t.Errorf("document.xml missing %q", fragment)
		}
	}
	if !strings.Contains(files["word/styles.xml"], `w:styleId="Heading3"`) {
		t.Error("styles.xml missing Heading3")
	}
}

func TestExportDOCX(t *testing.T) {
	svc := NewService()
	result, err := svc.Export(context.Background(), Request{
		Title:   "Biology Quiz",
		Content: "Q1 - What is a cell?",
		Format:  FormatDOCX,
	})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if result.Filename != "Biology-Quiz.docx" || result.MimeType != mimeDOCX {
		t.Fatalf("unexpected result metadata: %s %s", result.Filename, result.MimeType)
	}
	if !strings.Contains(readZip(t, result.Data)["word/document.xml"], "Q1 - What is a cell?") {
		t.Fatal("document body missing content")
	}
}

func TestExportMarkdown(t *testing.T) {
	result, err := NewService().Export(context.Background(), Request{Title: "", Content: "# hi", Format: FormatMarkdown})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if string(result.Data) != "# hi" || result.Filename != "document.md" || !strings.HasPrefix(result.MimeType, "text/markdown") {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestExportPDFWithoutChrome(t *testing.T) {
	svc := NewService()
	svc.lookPath = func(string) (string, error) { return "", exec.ErrNotFound }

	_, err := svc.Export(context.Background(), Request{Title: "T", Content: "x", Format: FormatPDF})
	if !errors.Is(err, ErrPDFDependencyMissing) {
		t.Fatalf("Export() error = %v, want ErrPDFDependencyMissing", err)
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	_, err := NewService().Export(context.Background(), Request{Format: Format("odt")})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("Export() error = %v, want ErrUnsupportedFormat", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
		ok    bool
	}{
		{"", FormatDOCX, true},
		{"DOCX", FormatDOCX, true},
		{"pdf", FormatPDF, true},
		{"markdown", FormatMarkdown, true},
		{"odt", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseFormat(tt.input)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.input, got, ok)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"My Document v1.2", "My-Document-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "document"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := sanitizeFilename(tt.input); result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"é", "%C3%A9"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := percentEncodeForDataURL(tt.input); result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRenderDocumentHTML(t *testing.T) {
	body, err := RenderHTML("Q1 - **bold**\n\n<script>alert(1)</script>\n")
	if err != nil {
		t.Fatalf("RenderHTML() error = %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Fatal("raw HTML should be dropped")
	}

	html, err := RenderDocumentHTML(TemplateData{
		Title:       "Test <Document>",
		ContentHTML: template.HTML(body),
		GeneratedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("RenderDocumentHTML() error = %v", err)
	}
	if !strings.Contains(html, "Test &lt;Document&gt;") {
		t.Error("title should be escaped")
	}
	if !strings.Contains(html, "<strong>bold</strong>") {
		t.Error("content HTML should be rendered unescaped")
	}
	if !strings.Contains(html, "Mar 1, 2026") {
		t.Error("HTML missing export date")
	}
}
