package expand

import (
	"errors"
	"fmt"
)

// Sentinels for the two fatal conditions. Both are reported before any block
// is read or written.
var (
	ErrMissingSourceTable      = errors.New("missing source table")
	ErrMissingDestinationTable = errors.New("missing destination table")
)

// Sheet roles used by MissingSheetError.
const (
	RoleSource      = "source"
	RoleDestination = "destination"
)

// MissingSheetError names the sheet that was not found.
type MissingSheetError struct {
	Role string // RoleSource or RoleDestination
	Name string
}

func (e *MissingSheetError) Error() string {
	if e.Role == RoleDestination {
		return fmt.Sprintf("Destination sheet %q not found", e.Name)
	}
	return fmt.Sprintf("Source sheet %q not found", e.Name)
}

// Is matches ErrMissingSourceTable or ErrMissingDestinationTable by role.
func (e *MissingSheetError) Is(target error) bool {
	switch target {
	case ErrMissingSourceTable:
		return e.Role == RoleSource
	case ErrMissingDestinationTable:
		return e.Role == RoleDestination
	}
	return false
}
