package source

import (
	"os"
	"path/filepath"
	"strings"

	csvimport "github.com/Proyectitos24/RepasoAlbaranes/internal/infrastructure/import"
)

// OpenCSV reads a CSV export into memory as a single table named after the file stem
func OpenCSV(name, path string) (*MemorySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	parser, err := csvimport.NewCSVParser(f)
	if err != nil {
		return nil, &IOError{Op: "parse", Path: path, Err: err}
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, &IOError{Op: "parse", Path: path, Err: err}
	}
	records, err := parser.Records()
	if err != nil {
		return nil, &IOError{Op: "parse", Path: path, Err: err}
	}

	table := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	return NewMemorySource(name, Sheet{Name: table, Header: parser.Headers(), Rows: records}), nil
}
