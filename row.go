package sqlexec

// Row is a single materialized row returned by Executor.Select
//
// Values are addressable both by column name and by zero-based column index - both views read the
// same underlying values.
type Row struct {
	columns *columnsInfo
	values  []any
}

// Len returns the number of columns in the row
func (r Row) Len() int {
	return len(r.values)
}

// Columns returns the column names, in result order
func (r Row) Columns() []string {
	if r.columns == nil {
		return nil
	}
	return append([]string{}, r.columns.names...)
}

// At returns the value of the column at the given index
//
// panics if the index is out of range
func (r Row) At(index int) any {
	return r.values[index]
}

// Get returns the value of the named column
//
// when more than one column has the same name, the last of them is returned
func (r Row) Get(name string) (value any, ok bool) {
	if r.columns == nil {
		return nil, false
	}
	var i int
	if i, ok = r.columns.indices[name]; ok {
		value = r.values[i]
	}
	return value, ok
}

// Value returns the value of the named column (or nil if there is no such column)
func (r Row) Value(name string) any {
	v, _ := r.Get(name)
	return v
}

// Values returns the row values in column order
func (r Row) Values() []any {
	return r.values
}

// Map returns the row as a map of column name to value
func (r Row) Map() map[string]any {
	result := make(map[string]any, len(r.values))
	if r.columns != nil {
		for name, i := range r.columns.indices {
			result[name] = r.values[i]
		}
	}
	return result
}
