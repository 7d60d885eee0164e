package output

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
)

//go:embed templates/report.html
var reportTemplate string

var reportHTML = template.Must(template.New("report").Parse(reportTemplate))

// RenderHTML writes the report as a self-contained HTML page
func RenderHTML(w io.Writer, s *Summary) error {
	var buf bytes.Buffer
	if err := reportHTML.Execute(&buf, s); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteHTML renders the HTML report to path
func WriteHTML(s *Summary, path string) error {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, s); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write html report: %w", err)
	}
	return nil
}

// WriteText writes the plain console report to path
func WriteText(s *Summary, path string) error {
	var buf bytes.Buffer
	if err := PrintReport(&buf, s, false); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}
	return nil
}
