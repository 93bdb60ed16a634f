package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	parquet "github.com/parquet-go/parquet-go"

	"github.com/tyler180/nba-stats-backends/internal/table"
)

// columnsKey holds the JSON list of column names in table order. Parquet
// group fields are sorted by name, so the order is kept in the footer.
const columnsKey = "nba.columns"

const readBatch = 128

var errNoColumns = errors.New("table has no columns")

// Encode writes t as a zstd-compressed parquet file. Every column is optional
// so nulls survive the round trip.
func Encode(w io.Writer, t *table.Table) error {
	if t == nil || t.NumCols() == 0 {
		return errNoColumns
	}
	cols := t.Columns()
	group := parquet.Group{}
	names := make([]string, len(cols))
	for i, c := range cols {
		leaf, err := leafFor(c.Kind)
		if err != nil {
			return fmt.Errorf("column %q: %w", c.Name, err)
		}
		group[c.Name] = parquet.Optional(leaf)
		names[i] = c.Name
	}
	schema := parquet.NewSchema("nba_table", group)

	order, err := json.Marshal(names)
	if err != nil {
		return err
	}

	// position of each table column among the schema's leaf columns
	leafIdx := make([]int, len(cols))
	for i, name := range names {
		lc, ok := schema.Lookup(name)
		if !ok {
			return fmt.Errorf("column %q missing from schema", name)
		}
		leafIdx[i] = lc.ColumnIndex
	}

	pw := parquet.NewWriter(w, schema,
		parquet.Compression(&parquet.Zstd),
		parquet.KeyValueMetadata(columnsKey, string(order)),
	)
	rows := make([]parquet.Row, 0, readBatch)
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if _, err := pw.WriteRows(rows); err != nil {
			return err
		}
		rows = rows[:0]
		return nil
	}
	for r := 0; r < t.NumRows(); r++ {
		row := make(parquet.Row, len(cols))
		for i, c := range cols {
			ci := leafIdx[i]
			if v := c.Values[r]; v != nil {
				row[ci] = parquet.ValueOf(v).Level(0, 1, ci)
			} else {
				row[ci] = parquet.NullValue().Level(0, 0, ci)
			}
		}
		rows = append(rows, row)
		if len(rows) == readBatch {
			if err := flush(); err != nil {
				_ = pw.Close()
				return err
			}
		}
	}
	if err := flush(); err != nil {
		_ = pw.Close()
		return err
	}
	return pw.Close()
}

// EncodeBytes is Encode into memory.
func EncodeBytes(t *table.Table) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a file written by Encode. A damaged file is an error, never a
// panic: parquet-go can panic on corrupt page data.
func Decode(r io.ReaderAt, size int64) (t *table.Table, err error) {
	defer func() {
		if p := recover(); p != nil {
			t, err = nil, fmt.Errorf("corrupt parquet data: %v", p)
		}
	}()
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, err
	}
	raw, ok := f.Lookup(columnsKey)
	if !ok {
		return nil, fmt.Errorf("missing %s metadata", columnsKey)
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("bad %s metadata: %w", columnsKey, err)
	}
	if len(names) == 0 {
		return nil, errNoColumns
	}

	schema := f.Schema()
	cols := make([]table.Column, len(names))
	byLeaf := make(map[int]int, len(names))
	for i, name := range names {
		lc, ok := schema.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("column %q missing from file schema", name)
		}
		kind, err := kindFor(lc.Node.Type().Kind())
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		cols[i] = table.Column{Name: name, Kind: kind, Values: make([]any, 0, f.NumRows())}
		byLeaf[lc.ColumnIndex] = i
	}

	buf := make([]parquet.Row, readBatch)
	for _, rg := range f.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				for _, v := range row {
					i, ok := byLeaf[v.Column()]
					if !ok {
						continue
					}
					cols[i].Values = append(cols[i].Values, valueOf(cols[i].Kind, v))
				}
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				_ = rows.Close()
				return nil, err
			}
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
	}
	return table.New(cols...)
}

func leafFor(k table.Kind) (parquet.Node, error) {
	switch k {
	case table.String:
		return parquet.String(), nil
	case table.Int:
		return parquet.Int(64), nil
	case table.Float:
		return parquet.Leaf(parquet.DoubleType), nil
	case table.Bool:
		return parquet.Leaf(parquet.BooleanType), nil
	default:
		return nil, fmt.Errorf("unsupported kind %s", k)
	}
}

func kindFor(k parquet.Kind) (table.Kind, error) {
	switch k {
	case parquet.ByteArray:
		return table.String, nil
	case parquet.Int64:
		return table.Int, nil
	case parquet.Double:
		return table.Float, nil
	case parquet.Boolean:
		return table.Bool, nil
	default:
		return 0, fmt.Errorf("unsupported parquet type %s", k)
	}
}

func valueOf(k table.Kind, v parquet.Value) any {
	if v.IsNull() {
		return nil
	}
	switch k {
	case table.String:
		return string(v.ByteArray())
	case table.Int:
		return v.Int64()
	case table.Float:
		return v.Double()
	default:
		return v.Boolean()
	}
}
