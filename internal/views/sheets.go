package views

import "github.com/sommarioni/sommarioni/internal/export"

// Sheets lists the worksheets of the view's tables, followed by the
// institutions summary when the view has one.
func (v *View) Sheets() []export.Sheet {
	sheets := make([]export.Sheet, 0, len(v.Tables)+1)
	for _, t := range v.Tables {
		sheets = append(sheets, export.FromTable(t, valueColumn(v.Name)))
	}
	if len(v.Institutions) > 0 {
		sheets = append(sheets, export.FromQualityCounts("institutions", v.Institutions))
	}
	return sheets
}

func valueColumn(view string) string {
	switch view {
	case Expropriation, AverageSurface:
		return "surface"
	default:
		return "count"
	}
}
