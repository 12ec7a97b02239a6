// Package expand turns compact row-and-count records into one output row per
// unit count.
//
// A source row carries five attribute cells (columns B..F by default) and five
// count cells, one per size (XS, S, M, L, XL). For every size in order the
// row's attributes are emitted floor(count) times, permuted to B, D, E, C, F
// and tagged with the size label read from the header row.
package expand

import (
	"fmt"
	"strings"

	"rowexpand/internal/sheet"
)

// SizeKey identifies a count column.
type SizeKey string

// Default size keys, in expansion order.
const (
	SizeXS SizeKey = "XS"
	SizeS  SizeKey = "S"
	SizeM  SizeKey = "M"
	SizeL  SizeKey = "L"
	SizeXL SizeKey = "XL"
)

// Attribute positions within SourceColumns.Attributes.
const (
	AttrB = iota
	AttrC
	AttrD
	AttrE
	AttrF
)

// outputOrder lists, for each output field, the attribute it copies.
var outputOrder = [5]int{AttrB, AttrD, AttrE, AttrC, AttrF}

// RowSpan is an inclusive, 1-based row interval.
type RowSpan struct {
	Start int
	End   int
}

// Len returns the number of rows in the span.
func (s RowSpan) Len() int { return s.End - s.Start + 1 }

// CountColumn binds a size key to its source column.
type CountColumn struct {
	Key    SizeKey
	Column int
}

// SourceColumns locates attributes and counts on the source sheet.
type SourceColumns struct {
	// Attributes holds the columns of B, C, D, E, F, indexed by AttrB..AttrF.
	Attributes [5]int
	// Counts is processed in slice order.
	Counts [5]CountColumn
}

// Plan is the immutable description of one expansion. All rows and columns
// are 1-based spreadsheet coordinates.
type Plan struct {
	SourceSheet string
	DestSheet   string
	HeaderRow   int
	Rows        RowSpan
	Source      SourceColumns
	// DestColumns places output fields 1..5 (B, D, E, C, F) and the size
	// label, in that order.
	DestColumns  [6]int
	DestStartRow int
}

// DefaultPlan returns the layout of the "Ideal Order Quantity" -> "jan_2026"
// workbook.
func DefaultPlan() Plan {
	return Plan{
		SourceSheet: "Ideal Order Quantity",
		DestSheet:   "jan_2026",
		HeaderRow:   2,
		Rows:        RowSpan{Start: 3, End: 224},
		Source: SourceColumns{
			Attributes: [5]int{2, 3, 4, 5, 6},
			Counts: [5]CountColumn{
				{Key: SizeXS, Column: 7},
				{Key: SizeS, Column: 8},
				{Key: SizeM, Column: 9},
				{Key: SizeL, Column: 10},
				{Key: SizeXL, Column: 11},
			},
		},
		DestColumns:  [6]int{2, 3, 4, 5, 7, 8},
		DestStartRow: 2,
	}
}

// Validate reports the first structural problem with p.
func (p Plan) Validate() error {
	if strings.TrimSpace(p.SourceSheet) == "" {
		return fmt.Errorf("plan: source sheet must not be empty")
	}
	if strings.TrimSpace(p.DestSheet) == "" {
		return fmt.Errorf("plan: destination sheet must not be empty")
	}
	if p.HeaderRow < 1 {
		return fmt.Errorf("plan: header row must be >= 1, got %d", p.HeaderRow)
	}
	if p.Rows.Start < 1 || p.Rows.End < p.Rows.Start {
		return fmt.Errorf("plan: invalid data rows %d..%d", p.Rows.Start, p.Rows.End)
	}
	for i, c := range p.Source.Attributes {
		if c < 1 {
			return fmt.Errorf("plan: attribute %d column must be >= 1, got %d", i, c)
		}
	}
	keys := make(map[SizeKey]struct{}, len(p.Source.Counts))
	for _, cc := range p.Source.Counts {
		if strings.TrimSpace(string(cc.Key)) == "" {
			return fmt.Errorf("plan: count column %d has an empty key", cc.Column)
		}
		if _, dup := keys[cc.Key]; dup {
			return fmt.Errorf("plan: duplicate count key %q", cc.Key)
		}
		keys[cc.Key] = struct{}{}
		if cc.Column < 1 {
			return fmt.Errorf("plan: count column for %s must be >= 1, got %d", cc.Key, cc.Column)
		}
	}
	seen := make(map[int]struct{}, len(p.DestColumns))
	for i, c := range p.DestColumns {
		if c < 1 {
			return fmt.Errorf("plan: destination column %d must be >= 1, got %d", i+1, c)
		}
		if _, dup := seen[c]; dup {
			return fmt.Errorf("plan: destination column %s used twice", sheet.ColumnName(c))
		}
		seen[c] = struct{}{}
	}
	if p.DestStartRow < 1 {
		return fmt.Errorf("plan: destination start row must be >= 1, got %d", p.DestStartRow)
	}
	return nil
}

// span returns the smallest and largest configured source columns.
func (p Plan) span() (first, last int) {
	first, last = p.Source.Attributes[0], p.Source.Attributes[0]
	grow := func(c int) {
		if c < first {
			first = c
		}
		if c > last {
			last = c
		}
	}
	for _, c := range p.Source.Attributes {
		grow(c)
	}
	for _, cc := range p.Source.Counts {
		grow(cc.Column)
	}
	return first, last
}

// SourceRange covers every data row across the contiguous span of source
// columns.
func (p Plan) SourceRange() sheet.Range {
	first, last := p.span()
	return sheet.Range{Sheet: p.SourceSheet, Row: p.Rows.Start, Col: first, Rows: p.Rows.Len(), Cols: last - first + 1}
}

// HeaderRange is the header row over the same column span as SourceRange.
func (p Plan) HeaderRange() sheet.Range {
	first, last := p.span()
	return sheet.Range{Sheet: p.SourceSheet, Row: p.HeaderRow, Col: first, Rows: 1, Cols: last - first + 1}
}

// DestWidth is the number of columns in a rendered destination row.
func (p Plan) DestWidth() int {
	w := 0
	for _, c := range p.DestColumns {
		if c > w {
			w = c
		}
	}
	return w
}

// DestRange addresses n rendered rows starting at column A.
func (p Plan) DestRange(n int) sheet.Range {
	return sheet.Range{Sheet: p.DestSheet, Row: p.DestStartRow, Col: 1, Rows: n, Cols: p.DestWidth()}
}

// Keys returns the size keys in expansion order.
func (p Plan) Keys() []SizeKey {
	out := make([]SizeKey, len(p.Source.Counts))
	for i, cc := range p.Source.Counts {
		out[i] = cc.Key
	}
	return out
}

// offset converts a source column into an index within a row read through
// SourceRange or HeaderRange.
func (p Plan) offset(col int) int {
	first, _ := p.span()
	return col - first
}

// Labels reads the size label of every count column from a header row read
// through HeaderRange.
func (p Plan) Labels(header []sheet.Cell) map[SizeKey]sheet.Cell {
	labels := make(map[SizeKey]sheet.Cell, len(p.Source.Counts))
	for _, cc := range p.Source.Counts {
		labels[cc.Key] = cellAt(header, p.offset(cc.Column))
	}
	return labels
}

func cellAt(row []sheet.Cell, i int) sheet.Cell {
	if i < 0 || i >= len(row) || row[i] == nil {
		return ""
	}
	return row[i]
}
