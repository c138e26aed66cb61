package export

import (
	"io"

	toml "github.com/pelletier/go-toml/v2"
)

// TOMLExporter exports sessions as a TOML document
type TOMLExporter struct{}

// Export exports a session to TOML format
func (e *TOMLExporter) Export(doc *Document, w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)

	return enc.Encode(doc)
}

// Extension returns the file extension for this format
func (e *TOMLExporter) Extension() string {
	return "toml"
}
