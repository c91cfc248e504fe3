package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Row is one result row with column order preserved.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of col and whether the column exists.
func (r Row) Get(col string) (any, bool) {
	for i, c := range r.Columns {
		if c == col {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Map loses column order; use it only for lookups.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}

// MarshalJSON writes the row as an object whose keys follow column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(marshalValue(r.Values[i]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalValue encodes one cell. NaN and infinities, which JSON cannot
// represent, become strings, as does anything else json rejects.
func marshalValue(v any) []byte {
	switch f := v.(type) {
	case float64:
		if math.IsNaN(f) || math.IsInf(f, 0) {
			v = strconv.FormatFloat(f, 'g', -1, 64)
		}
	case float32:
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			v = strconv.FormatFloat(float64(f), 'g', -1, 32)
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprint(v))
	}
	return b
}

// ResultSet is everything one statement returned.
type ResultSet struct {
	Columns []string
	Rows    []Row
}

func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// JSON renders the rows as a JSON array, "[]" when empty.
func (rs *ResultSet) JSON() string {
	rows := []Row{}
	if rs != nil && rs.Rows != nil {
		rows = rs.Rows
	}
	b, err := json.Marshal(rows)
	if err != nil {
		log.Error().Err(err).Int("rows", len(rows)).Msg("result set not encodable as json")
		return "[]"
	}
	return string(b)
}
