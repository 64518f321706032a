package snowflake

import "fmt"

// Rows is one query result: column names in declared order and row values in
// arrival order. A nil cell is SQL NULL; it is never folded into "".
type Rows struct {
    Columns []string
    Data    [][]*string
}

// ColumnIndex maps column name to position for callers that pick fields out
// of wide rows.
func (r Rows) ColumnIndex() map[string]int {
    idx := make(map[string]int, len(r.Columns))
    for i, c := range r.Columns { idx[c] = i }
    return idx
}

func (r Rows) Len() int { return len(r.Data) }

// cellToString normalizes a decoded JSON cell. The SQL API serializes every
// non-null value as a JSON string, but booleans and numbers can appear
// depending on session parameters.
func cellToString(v any) *string {
    switch t := v.(type) {
    case nil:
        return nil
    case string:
        return &t
    default:
        s := fmt.Sprint(t)
        return &s
    }
}
