package types

// AggregateRow is one line of a roll-up table (surface totals, counts).
type AggregateRow struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Table is a named, ordered roll-up.
type Table struct {
	Name string         `json:"name"`
	Rows []AggregateRow `json:"rows"`
}

// QualityCount is one line of the institutions-by-quality table.
type QualityCount struct {
	Name    string `json:"name"`
	Quality string `json:"quality"`
	Count   int    `json:"count"`
}
