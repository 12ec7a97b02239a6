package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rowexpand/internal/sheet"
)

func TestDefaultPlanRanges(t *testing.T) {
	p := DefaultPlan()
	require.NoError(t, p.Validate())

	assert.Equal(t, "Ideal Order Quantity!B3:K224", p.SourceRange().String())
	assert.Equal(t, "Ideal Order Quantity!B2:K2", p.HeaderRange().String())
	assert.Equal(t, sheet.Range{Sheet: "jan_2026", Row: 2, Col: 1, Rows: 10, Cols: 8}, p.DestRange(10))
	assert.Equal(t, 8, p.DestWidth())
	assert.Equal(t, 222, p.Rows.Len())
	assert.Equal(t, []SizeKey{SizeXS, SizeS, SizeM, SizeL, SizeXL}, p.Keys())
}

func TestPlanLabels(t *testing.T) {
	p := DefaultPlan()
	header := []sheet.Cell{"", "", "", "", "", "XS", "S", nil, "L"} // short row, nil M
	labels := p.Labels(header)
	assert.Equal(t, map[SizeKey]sheet.Cell{
		SizeXS: "XS", SizeS: "S", SizeM: "", SizeL: "L", SizeXL: "",
	}, labels)
}

func TestPlanRangesFollowNonContiguousColumns(t *testing.T) {
	p := DefaultPlan()
	p.Source.Attributes = [5]int{4, 5, 6, 7, 8}
	p.Source.Counts[0].Column = 2
	p.Source.Counts[4].Column = 12

	r := p.SourceRange()
	assert.Equal(t, 2, r.Col)
	assert.Equal(t, 11, r.Cols)
	assert.Equal(t, 0, p.offset(2))
	assert.Equal(t, 10, p.offset(12))
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Plan)
		errSub string
	}{
		{"empty source", func(p *Plan) { p.SourceSheet = " " }, "source sheet"},
		{"empty destination", func(p *Plan) { p.DestSheet = "" }, "destination sheet"},
		{"header row", func(p *Plan) { p.HeaderRow = 0 }, "header row"},
		{"rows reversed", func(p *Plan) { p.Rows = RowSpan{Start: 10, End: 9} }, "invalid data rows"},
		{"attribute column", func(p *Plan) { p.Source.Attributes[2] = 0 }, "attribute 2"},
		{"empty key", func(p *Plan) { p.Source.Counts[1].Key = "" }, "empty key"},
		{"duplicate key", func(p *Plan) { p.Source.Counts[1].Key = SizeXS }, "duplicate count key"},
		{"count column", func(p *Plan) { p.Source.Counts[3].Column = -1 }, "count column for L"},
		{"dest column", func(p *Plan) { p.DestColumns[0] = 0 }, "destination column 1"},
		{"dest duplicate", func(p *Plan) { p.DestColumns[5] = 2 }, "destination column B used twice"},
		{"dest start", func(p *Plan) { p.DestStartRow = 0 }, "start row"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultPlan()
			tc.mutate(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errSub)
		})
	}
}
