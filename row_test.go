package sqlexec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRow(t *testing.T) {
	cols := &columnsInfo{
		count:   3,
		names:   []string{"id", "email", "age"},
		indices: map[string]int{"id": 0, "email": 1, "age": 2},
	}
	row := Row{columns: cols, values: []any{int64(1), "a@x.com", int64(30)}}

	require.Equal(t, 3, row.Len())
	require.Equal(t, []string{"id", "email", "age"}, row.Columns())
	for i, name := range row.Columns() {
		v, ok := row.Get(name)
		require.True(t, ok)
		require.Equal(t, row.At(i), v)
	}
	require.Equal(t, "a@x.com", row.Value("email"))
	require.Nil(t, row.Value("missing"))
	_, ok := row.Get("missing")
	require.False(t, ok)
	require.Equal(t, map[string]any{"id": int64(1), "email": "a@x.com", "age": int64(30)}, row.Map())

	// both views share the same values
	row.Values()[1] = "b@x.com"
	require.Equal(t, "b@x.com", row.Value("email"))
	require.Equal(t, "b@x.com", row.At(1))
}

func TestRow_DuplicateColumnNames(t *testing.T) {
	cols := &columnsInfo{
		count:   3,
		names:   []string{"id", "name", "name"},
		indices: map[string]int{"id": 0, "name": 2},
	}
	row := Row{columns: cols, values: []any{int64(1), "user", "group"}}
	require.Equal(t, "user", row.At(1))
	require.Equal(t, "group", row.At(2))
	require.Equal(t, "group", row.Value("name"))
	require.Len(t, row.Map(), 2)
}

func TestRow_Zero(t *testing.T) {
	row := Row{}
	require.Equal(t, 0, row.Len())
	require.Nil(t, row.Columns())
	_, ok := row.Get("a")
	require.False(t, ok)
	require.Empty(t, row.Map())
	require.Panics(t, func() {
		_ = row.At(0)
	})
}
