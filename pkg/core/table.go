package core

// Table is a parsed tabular upload. Every cell is kept as text.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Empty reports whether the table has neither columns nor rows.
func (t *Table) Empty() bool {
	return t == nil || (len(t.Columns) == 0 && len(t.Rows) == 0)
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Head returns a table holding at most n rows.
func (t *Table) Head(n int) *Table {
	if t == nil {
		return nil
	}
	if n < 0 || n > len(t.Rows) {
		n = len(t.Rows)
	}
	return &Table{Columns: t.Columns, Rows: t.Rows[:n]}
}

// EditSet is the change payload produced by an editable grid over the pending store.
type EditSet struct {
	// Added rows carry only the fields the user filled in.
	Added []map[Field]string
	// Edited maps a row index to the fields changed on that row.
	Edited map[int]map[Field]string
	// Deleted lists row indexes to remove.
	Deleted []int
}
