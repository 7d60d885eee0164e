package sbom

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Marshal serializes a document as two-space indented JSON with a trailing
// newline. HTML characters are not escaped, so paths like "a<b" survive as is.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode sbom: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile marshals doc and writes it to path
func WriteFile(doc *Document, path string) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write sbom: %w", err)
	}
	return nil
}
