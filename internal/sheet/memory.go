package sheet

import (
	"context"
	"sync"
)

// Memory is an in-process Workbook. It backs dry runs and tests.
type Memory struct {
	mu     sync.Mutex
	sheets map[string]Grid
}

var (
	_ Workbook = (*Memory)(nil)
	_ Clearer  = (*Memory)(nil)
)

// NewMemory returns a workbook holding the given sheets. Grids are used as-is
// (row 1 is g[0], column A is g[r][0]).
func NewMemory(sheets map[string]Grid) *Memory {
	m := &Memory{sheets: map[string]Grid{}}
	for name, g := range sheets {
		m.sheets[name] = g
	}
	return m
}

// AddSheet creates an empty sheet, keeping an existing one untouched.
func (m *Memory) AddSheet(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sheets[name]; !ok {
		m.sheets[name] = Grid{}
	}
}

// Sheet returns the current contents of a sheet (nil if absent).
func (m *Memory) Sheet(name string) Grid {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sheets[name]
}

func (m *Memory) HasSheet(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sheets[name]
	return ok, nil
}

func (m *Memory) ReadBlock(_ context.Context, r Range) (Grid, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	src := m.sheets[r.Sheet]
	out := NewGrid(r.Rows, r.Cols)
	for i := 0; i < r.Rows; i++ {
		for j := 0; j < r.Cols; j++ {
			out[i][j] = src.At(r.Row-1+i, r.Col-1+j)
		}
	}
	return out, nil
}

func (m *Memory) WriteBlock(_ context.Context, r Range, g Grid) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := CheckShape(r, g); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	dst := m.sheets[r.Sheet]
	for len(dst) < r.LastRow() {
		dst = append(dst, []Cell{})
	}
	for i, row := range g {
		target := dst[r.Row-1+i]
		for len(target) < r.LastCol() {
			target = append(target, "")
		}
		copy(target[r.Col-1:], row)
		dst[r.Row-1+i] = target
	}
	m.sheets[r.Sheet] = dst
	return nil
}

func (m *Memory) ClearFrom(_ context.Context, sheet string, row, width int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g := m.sheets[sheet]
	if row < 1 {
		row = 1
	}
	for i := row - 1; i < len(g); i++ {
		for j := 0; j < width && j < len(g[i]); j++ {
			g[i][j] = ""
		}
	}
	// Drop trailing rows left empty.
	n := len(g)
	for n >= row && blankRow(g[n-1]) {
		n--
	}
	m.sheets[sheet] = g[:n]
	return nil
}

func blankRow(row []Cell) bool {
	for _, c := range row {
		if c != nil && c != "" {
			return false
		}
	}
	return true
}

func (m *Memory) Close() error { return nil }
