package expand

import (
	"math"

	"go.uber.org/zap"

	"rowexpand/internal/sheet"
)

const (
	defaultProgressEvery = 50
	defaultAnomalyLimit  = 20
	defaultMaxCount      = 1_000_000
)

// overflowType marks a count above Expander.MaxCount.
const overflowType = "overflow"


// Output is one expanded record.
type Output struct {
	// Fields holds source attributes in output order B, D, E, C, F.
	Fields [5]sheet.Cell
	// Size is the header label of the count column that produced the record.
	Size sheet.Cell

	SourceRow int
	Key       SizeKey
}

// Anomaly records a count cell that was skipped or truncated.
type Anomaly struct {
	Row    int
	Column string // column letter, e.g. "G"
	Key    SizeKey
	Value  sheet.Cell
	Type   string // "string", "number", "boolean", "date", "overflow", ...
}

// Stats are diagnostic counters for operators. They never influence the
// output.
type Stats struct {
	RowsScanned   int
	CellsScanned  int
	PositiveCells int
	CountSum      float64
	RowsGenerated int

	// SkippedTotal counts every non-blank, non-zero value that produced no
	// rows; Skipped keeps only the first few.
	SkippedTotal int
	Skipped      []Anomaly
	// FractionalTotal counts every positive count with a fractional part;
	// Fractional keeps only the first few.
	FractionalTotal int
	Fractional      []Anomaly
}

// Expander expands source blocks according to Plan.
type Expander struct {
	Plan   Plan
	Logger *zap.Logger
	// ProgressEvery logs progress after this many source rows; <= 0 disables.
	ProgressEvery int
	// AnomalyLimit caps Stats.Skipped and Stats.Fractional.
	AnomalyLimit int
	// MaxCount is the largest count a single cell may expand to; larger
	// counts are skipped. <= 0 uses the default.
	MaxCount int
}

// New returns an Expander with the default progress interval and anomaly
// limit. A nil logger discards output.
func New(plan Plan, logger *zap.Logger) *Expander {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Expander{
		Plan:          plan,
		Logger:        logger,
		ProgressEvery: defaultProgressEvery,
		AnomalyLimit:  defaultAnomalyLimit,
		MaxCount:      defaultMaxCount,
	}
}

func (e *Expander) maxCount() float64 {
	if e.MaxCount <= 0 {
		return defaultMaxCount
	}
	return float64(e.MaxCount)
}

func (e *Expander) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

// Expand processes block (read through Plan.SourceRange) using the labels in
// header (read through Plan.HeaderRange). Outputs are ordered by source row,
// then count column, then repetition.
func (e *Expander) Expand(header []sheet.Cell, block sheet.Grid) ([]Output, Stats) {
	p := e.Plan
	labels := p.Labels(header)
	log := e.logger()
	ceiling := e.maxCount()

	var (
		stats   Stats
		outputs []Output
		attrIdx [5]int
		cntIdx  [5]int
	)
	for i, c := range p.Source.Attributes {
		attrIdx[i] = p.offset(c)
	}
	for i, cc := range p.Source.Counts {
		cntIdx[i] = p.offset(cc.Column)
	}

	for i, row := range block {
		srcRow := p.Rows.Start + i
		stats.RowsScanned++

		var fields [5]sheet.Cell
		for j, a := range outputOrder {
			fields[j] = cellAt(row, attrIdx[a])
		}

		for k, cc := range p.Source.Counts {
			stats.CellsScanned++
			raw := rawAt(row, cntIdx[k])
			n := ToNumber(raw)

			if math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
				if !silentZero(raw) {
					stats.SkippedTotal++
					e.note(&stats.Skipped, Anomaly{Row: srcRow, Column: sheet.ColumnName(cc.Column), Key: cc.Key, Value: raw, Type: typeName(raw)})
				}
				continue
			}

			whole := math.Floor(n)
			if whole > ceiling {
				stats.SkippedTotal++
				e.note(&stats.Skipped, Anomaly{Row: srcRow, Column: sheet.ColumnName(cc.Column), Key: cc.Key, Value: raw, Type: overflowType})
				continue
			}

			stats.PositiveCells++
			stats.CountSum += n
			if whole != n {
				stats.FractionalTotal++
				e.note(&stats.Fractional, Anomaly{Row: srcRow, Column: sheet.ColumnName(cc.Column), Key: cc.Key, Value: n, Type: typeName(raw)})
			}

			size := labels[cc.Key]
			for c := 0; c < int(whole); c++ {
				outputs = append(outputs, Output{Fields: fields, Size: size, SourceRow: srcRow, Key: cc.Key})
			}
			stats.RowsGenerated += int(whole)
		}

		if e.ProgressEvery > 0 && (i+1)%e.ProgressEvery == 0 {
			log.Info("expand: progress",
				zap.Int("processed", i+1),
				zap.Int("total", len(block)),
				zap.Int("rows_generated", stats.RowsGenerated))
		}
	}
	return outputs, stats
}

func (e *Expander) note(list *[]Anomaly, a Anomaly) {
	if len(*list) < e.AnomalyLimit {
		*list = append(*list, a)
	}
}

// rawAt returns the cell unchanged, or nil outside the row.
func rawAt(row []sheet.Cell, i int) sheet.Cell {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

// Render lays outputs out as destination rows starting at column A. Columns
// not named by Plan.DestColumns are "".
func Render(p Plan, outputs []Output) sheet.Grid {
	g := sheet.NewGrid(len(outputs), p.DestWidth())
	for i, o := range outputs {
		for j, f := range o.Fields {
			if f == nil {
				f = ""
			}
			g[i][p.DestColumns[j]-1] = f
		}
		size := o.Size
		if size == nil {
			size = ""
		}
		g[i][p.DestColumns[5]-1] = size
	}
	return g
}
