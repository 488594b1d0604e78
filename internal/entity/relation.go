package entity

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ColumnType tags the inferred type of a relation column.
type ColumnType string

const (
	ColumnInt    ColumnType = "int64"
	ColumnFloat  ColumnType = "float64"
	ColumnBool   ColumnType = "bool"
	ColumnString ColumnType = "string"
)

// Column is one named, typed column of a relation. Values are row-aligned;
// a nil value marks a missing cell. Cell values are int64, float64, bool or
// string according to Type.
type Column struct {
	Name   string
	Type   ColumnType
	Values []any
}

// Missing counts nil cells.
func (c *Column) Missing() int {
	n := 0
	for _, v := range c.Values {
		if v == nil {
			n++
		}
	}
	return n
}

// Floats returns the non-missing values of a numeric column as float64s in
// row order. Non-numeric columns return nil.
func (c *Column) Floats() []float64 {
	if c.Type != ColumnInt && c.Type != ColumnFloat {
		return nil
	}
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		switch n := v.(type) {
		case int64:
			out = append(out, float64(n))
		case float64:
			out = append(out, n)
		}
	}
	return out
}

// Relation is an ordered sequence of named, typed columns with row-aligned
// values: the in-memory table produced by tabular ingestion.
type Relation struct {
	Columns []Column
}

// NewRelationFromRecords builds a relation from a header row and data rows.
// Every row must have exactly len(header) fields. Column types are inferred
// from the non-empty cells: int64, then float64, then bool, else string.
// Empty cells become missing values.
func NewRelationFromRecords(header []string, rows [][]string) *Relation {
	rel := &Relation{Columns: make([]Column, len(header))}
	for i, name := range header {
		raw := make([]string, len(rows))
		for j, row := range rows {
			raw[j] = row[i]
		}
		typ := inferColumnType(raw)
		values := make([]any, len(raw))
		for j, cell := range raw {
			values[j] = parseCell(cell, typ)
		}
		rel.Columns[i] = Column{Name: strings.TrimSpace(name), Type: typ, Values: values}
	}
	return rel
}

func inferColumnType(raw []string) ColumnType {
	isInt, isFloat, isBool := true, true, true
	seen := false
	for _, cell := range raw {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		seen = true
		if isInt {
			if _, err := strconv.ParseInt(cell, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			switch strings.ToLower(cell) {
			case "true", "false":
			default:
				isBool = false
			}
		}
	}
	if !seen {
		return ColumnString
	}
	switch {
	case isInt:
		return ColumnInt
	case isFloat:
		return ColumnFloat
	case isBool:
		return ColumnBool
	default:
		return ColumnString
	}
}

func parseCell(cell string, typ ColumnType) any {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	switch typ {
	case ColumnInt:
		n, _ := strconv.ParseInt(cell, 10, 64)
		return n
	case ColumnFloat:
		f, _ := strconv.ParseFloat(cell, 64)
		return f
	case ColumnBool:
		return strings.EqualFold(cell, "true")
	default:
		return cell
	}
}

// NumRows returns the row count.
func (r *Relation) NumRows() int {
	if len(r.Columns) == 0 {
		return 0
	}
	return len(r.Columns[0].Values)
}

// NumColumns returns the column count.
func (r *Relation) NumColumns() int {
	return len(r.Columns)
}

// ColumnNames returns names in insertion order.
func (r *Relation) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// ByteEstimate approximates the in-memory size of the relation.
func (r *Relation) ByteEstimate() int64 {
	var total int64
	for _, c := range r.Columns {
		total += int64(len(c.Name))
		for _, v := range c.Values {
			switch s := v.(type) {
			case string:
				total += int64(len(s))
			case bool:
				total++
			case nil:
			default:
				total += 8
			}
		}
	}
	return total
}

// Summaries produces the per-column metadata reported in TabularInfo.
func (r *Relation) Summaries() []ColumnSummary {
	out := make([]ColumnSummary, len(r.Columns))
	for i, c := range r.Columns {
		out[i] = ColumnSummary{Name: c.Name, Type: c.Type, Missing: c.Missing()}
	}
	return out
}

// RenderPreview renders the first n rows as an aligned text table with a
// row-index column.
func (r *Relation) RenderPreview(n int) string {
	rows := r.NumRows()
	if n > rows {
		n = rows
	}
	index := make([]string, n)
	cells := make([][]string, n)
	for i := 0; i < n; i++ {
		index[i] = strconv.Itoa(i)
		row := make([]string, len(r.Columns))
		for j, c := range r.Columns {
			row[j] = formatCell(c.Values[i])
		}
		cells[i] = row
	}
	return renderTable(index, r.ColumnNames(), cells)
}

// statNames is the fixed row order of Describe output.
var statNames = []string{"count", "mean", "std", "min", "25%", "50%", "75%", "max"}

// Describe renders count/mean/std/min/quartiles/max for the numeric columns.
// Returns an empty string when no column is numeric.
func (r *Relation) Describe() string {
	var names []string
	var stats [][]float64
	for _, c := range r.Columns {
		vals := c.Floats()
		if vals == nil {
			continue
		}
		names = append(names, c.Name)
		stats = append(stats, columnStats(vals))
	}
	if len(names) == 0 {
		return ""
	}
	cells := make([][]string, len(statNames))
	for i := range statNames {
		row := make([]string, len(names))
		for j := range names {
			row[j] = formatStat(stats[j][i])
		}
		cells[i] = row
	}
	return renderTable(statNames, names, cells)
}

// columnStats returns values aligned with statNames.
func columnStats(vals []float64) []float64 {
	n := len(vals)
	if n == 0 {
		nan := math.NaN()
		return []float64{0, nan, nan, nan, nan, nan, nan, nan}
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range vals {
		sum += v
	}
	mean := sum / float64(n)

	std := math.NaN()
	if n > 1 {
		var ss float64
		for _, v := range vals {
			d := v - mean
			ss += d * d
		}
		std = math.Sqrt(ss / float64(n-1))
	}

	return []float64{
		float64(n),
		mean,
		std,
		sorted[0],
		quantile(sorted, 0.25),
		quantile(sorted, 0.50),
		quantile(sorted, 0.75),
		sorted[n-1],
	}
}

// quantile interpolates linearly over a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func formatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return "NaN"
	case int64:
		return strconv.FormatInt(c, 10)
	case float64:
		return strconv.FormatFloat(c, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(c)
	case string:
		return c
	default:
		return ""
	}
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// renderTable lays out an aligned text table: a blank-headed index column
// followed by right-aligned data columns. Widths are measured in runes so
// multi-byte cells keep the columns aligned.
func renderTable(index, headers []string, cells [][]string) string {
	idxWidth := 0
	for _, s := range index {
		if n := utf8.RuneCountInString(s); n > idxWidth {
			idxWidth = n
		}
	}
	widths := make([]int, len(headers))
	for j, h := range headers {
		widths[j] = utf8.RuneCountInString(h)
		for i := range cells {
			if n := utf8.RuneCountInString(cells[i][j]); n > widths[j] {
				widths[j] = n
			}
		}
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", idxWidth))
	for j, h := range headers {
		b.WriteString("  ")
		b.WriteString(strings.Repeat(" ", widths[j]-utf8.RuneCountInString(h)))
		b.WriteString(h)
	}
	for i := range cells {
		b.WriteString("\n")
		b.WriteString(strings.Repeat(" ", idxWidth-utf8.RuneCountInString(index[i])))
		b.WriteString(index[i])
		for j, cell := range cells[i] {
			b.WriteString("  ")
			b.WriteString(strings.Repeat(" ", widths[j]-utf8.RuneCountInString(cell)))
			b.WriteString(cell)
		}
	}
	return b.String()
}
