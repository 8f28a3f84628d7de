package sqlexec

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ColumnScanner is a func that can be used to read the value of a column
type ColumnScanner func(src any) (value any, err error)

// ColumnScanners is an option that can be passed to New or NewExecutor
//
// and supplies a ColumnScanner by column name, used when materializing rows from Executor.Select
type ColumnScanners map[string]ColumnScanner

// UseDecimals is an option that can be passed to New or NewExecutor
//
// and determines whether float/numeric/decimal columns are materialized as decimal.Decimal values (default false)
type UseDecimals bool

// BoolColumn is a ColumnScanner that converts a column to a bool
//
// Particularly useful for MySql which only supports BOOL columns as TINYINT
func BoolColumn(src any) (any, error) {
	switch v := src.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case []byte:
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(v)
	case nil:
		return false, nil
	}
	return nil, fmt.Errorf("type %T is not a bool", src)
}

type columnsInfo struct {
	count       int
	names       []string
	indices     map[string]int
	scanTypes   []reflect.Type
	dbTypes     []string
	scanners    ColumnScanners
	useDecimals bool
}

type columnsReader struct {
	values   []any
	scanArgs []any
}

func newColumnsInfo(rows *sql.Rows, useDecimals bool, scanners ColumnScanners) (result *columnsInfo, err error) {
	var cts []*sql.ColumnType
	if cts, err = rows.ColumnTypes(); err == nil {
		count := len(cts)
		result = &columnsInfo{
			count:       count,
			names:       make([]string, count),
			indices:     make(map[string]int, count),
			scanTypes:   make([]reflect.Type, count),
			dbTypes:     make([]string, count),
			scanners:    scanners,
			useDecimals: useDecimals,
		}
		for i, ct := range cts {
			result.names[i] = ct.Name()
			// a later column with the same name wins
			result.indices[ct.Name()] = i
			result.scanTypes[i] = ct.ScanType()
			result.dbTypes[i] = strings.ToUpper(ct.DatabaseTypeName())
		}
	}
	return result, err
}

// reader returns a fresh set of scan destinations, so each row gets its own values slice
func (ci *columnsInfo) reader() *columnsReader {
	r := &columnsReader{
		values:   make([]any, ci.count),
		scanArgs: make([]any, ci.count),
	}
	for i := 0; i < ci.count; i++ {
		r.scanArgs[i] = ci.buildScanner(r, i)
	}
	return r
}

func (ci *columnsInfo) buildScanner(cr *columnsReader, index int) sql.Scanner {
	if s, ok := ci.scanners[ci.names[index]]; ok && s != nil {
		return &customColumnScanner{
			columns: cr,
			index:   index,
			scanner: s,
		}
	}
	switch ci.dbTypes[index] {
	case "JSON", "JSONB":
		return &jsonColumnScanner{
			columns: cr,
			index:   index,
		}
	case "DECIMAL", "FLOAT", "DOUBLE", "NUMERIC", "REAL":
		if ci.useDecimals {
			return &decimalColumnScanner{
				columns: cr,
				index:   index,
			}
		}
	}
	if ci.scanTypes[index] != nil {
		v := reflect.New(ci.scanTypes[index]).Interface()
		switch v.(type) {
		case *string, *sql.NullString:
			return &stringColumnScanner{
				columns: cr,
				index:   index,
			}
		case *float32, *float64, *sql.NullFloat64:
			if ci.useDecimals {
				return &decimalColumnScanner{
					columns: cr,
					index:   index,
				}
			}
		}
	}
	return &rawColumnScanner{
		columns: cr,
		index:   index,
	}
}

type customColumnScanner struct {
	columns *columnsReader
	index   int
	scanner ColumnScanner
}

func (c *customColumnScanner) Scan(src any) error {
	v, err := c.scanner(src)
	if err == nil {
		c.columns.values[c.index] = v
	}
	return err
}

type rawColumnScanner struct {
	columns *columnsReader
	index   int
}

func (c *rawColumnScanner) Scan(src any) error {
	// drivers may reuse the src buffer after Scan returns
	if b, ok := src.([]byte); ok {
		src = append([]byte(nil), b...)
	}
	c.columns.values[c.index] = src
	return nil
}

type stringColumnScanner struct {
	columns *columnsReader
	index   int
}

func (c *stringColumnScanner) Scan(src any) error {
	switch v := src.(type) {
	case []byte:
		c.columns.values[c.index] = string(v)
	default:
		c.columns.values[c.index] = v
	}
	return nil
}

type decimalColumnScanner struct {
	columns *columnsReader
	index   int
}

func (c *decimalColumnScanner) Scan(src any) error {
	var err error
	switch v := src.(type) {
	case float32:
		c.columns.values[c.index] = decimal.NewFromFloat(float64(v))
	case float64:
		c.columns.values[c.index] = decimal.NewFromFloat(v)
	case int64:
		c.columns.values[c.index] = decimal.New(v, 0)
	case []byte:
		c.columns.values[c.index], err = decimal.NewFromString(unquote(string(v)))
	case string:
		c.columns.values[c.index], err = decimal.NewFromString(unquote(v))
	default:
		c.columns.values[c.index] = src
	}
	return err
}

func unquote(s string) string {
	if len(s) > 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}

type jsonColumnScanner struct {
	columns *columnsReader
	index   int
}

func (c *jsonColumnScanner) Scan(src any) error {
	var err error
	switch data := src.(type) {
	case []byte:
		var v any
		if err = json.Unmarshal(data, &v); err == nil {
			c.columns.values[c.index] = v
		}
	case string:
		var v any
		if err = json.Unmarshal([]byte(data), &v); err == nil {
			c.columns.values[c.index] = v
		}
	default:
		c.columns.values[c.index] = src
	}
	return err
}
