package analysis

// ValidationError carries the reason a table was rejected for analysis.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid table: " + e.Reason }

// Validate checks that t is usable for analysis. It returns false with a
// reason for a missing table, zero rows, zero columns, or a table whose every
// cell is null.
func Validate(t *Table) (bool, string) {
	switch {
	case t == nil:
		return false, "Dataframe is None"
	case len(t.Rows) == 0:
		return false, "Dataframe is empty"
	case len(t.Columns) == 0:
		return false, "No columns found"
	}
	for _, row := range t.Rows {
		for _, c := range row {
			if c.Valid {
				return true, ""
			}
		}
	}
	return false, "All values are null"
}

// Check is Validate in error form.
func Check(t *Table) error {
	if ok, reason := Validate(t); !ok {
		return &ValidationError{Reason: reason}
	}
	return nil
}
