package source

import (
	"github.com/xuri/excelize/v2"
)

// OpenWorkbook reads every sheet of an Excel workbook into memory.
// Each sheet is a table named after it; its first row is the header.
func OpenWorkbook(name, path string) (*MemorySource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &IOError{Op: "open workbook", Path: path, Err: err}
	}
	defer f.Close()

	var sheets []Sheet
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, &IOError{Op: "read sheet " + sheetName + " of", Path: path, Err: err}
		}
		if len(rows) == 0 {
			continue
		}
		sheets = append(sheets, Sheet{Name: sheetName, Header: rows[0], Rows: rows[1:]})
	}
	return NewMemorySource(name, sheets...), nil
}
