// Package export renders aggregate tables as XLSX workbooks.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sommarioni/sommarioni/pkg/types"
)

const maxSheetName = 31

// Sheet is one worksheet: a header row followed by data rows.
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]interface{}
}

// FromTable converts a roll-up table into a two-column sheet.
func FromTable(t types.Table, valueColumn string) Sheet {
	s := Sheet{Name: t.Name, Columns: []string{"name", valueColumn}}
	for _, r := range t.Rows {
		s.Rows = append(s.Rows, []interface{}{r.Name, r.Value})
	}
	return s
}

// FromQualityCounts converts the institutions-by-quality rows.
func FromQualityCounts(name string, rows []types.QualityCount) Sheet {
	s := Sheet{Name: name, Columns: []string{"name", "quality", "count"}}
	for _, r := range rows {
		s.Rows = append(s.Rows, []interface{}{r.Name, r.Quality, r.Count})
	}
	return s
}

// Build renders sheets into a workbook. Sheet names are sanitised and
// truncated to the XLSX limit; duplicates get a numeric suffix.
func Build(sheets []Sheet) (*excelize.File, error) {
	f := excelize.NewFile()
	if len(sheets) == 0 {
		return f, nil
	}

	used := make(map[string]bool, len(sheets))
	for i, sheet := range sheets {
		name := uniqueName(sheetName(sheet.Name, i), used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}

		for col, header := range sheet.Columns {
			if err := setCell(f, name, col, 1, header); err != nil {
				return nil, err
			}
		}
		for r, row := range sheet.Rows {
			for col, v := range row {
				if err := setCell(f, name, col, r+2, v); err != nil {
					return nil, err
				}
			}
		}
	}
	return f, nil
}

// Write renders sheets as XLSX into w.
func Write(w io.Writer, sheets []Sheet) error {
	f, err := Build(sheets)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}

// Bytes renders sheets as an XLSX document.
func Bytes(sheets []Sheet) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, sheets); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile renders sheets into an XLSX file at path.
func WriteFile(path string, sheets []Sheet) error {
	f, err := Build(sheets)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

func setCell(f *excelize.File, sheet string, col, row int, v interface{}) error {
	cell, err := excelize.CoordinatesToCellName(col+1, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, v)
}

func sheetName(name string, i int) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if name == "" {
		name = fmt.Sprintf("Sheet%d", i+1)
	}
	if r := []rune(name); len(r) > maxSheetName {
		name = string(r[:maxSheetName])
	}
	return name
}

func uniqueName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		r := []rune(name)
		if len(r)+len(suffix) > maxSheetName {
			r = r[:maxSheetName-len(suffix)]
		}
		candidate = string(r) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
