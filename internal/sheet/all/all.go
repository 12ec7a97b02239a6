// Package all registers every built-in workbook backend ("xlsx", "csv") with
// the sheet registry. Import it for side effects.
package all

import (
	_ "rowexpand/internal/sheet/csvdir"
	_ "rowexpand/internal/sheet/xlsx"
)
