// Package query parses query-string directives that select how the
// warehouse aggregates clinical records.
package query

import (
	"errors"
	"strings"
)

// CountMode identifies a counting strategy for record counts.
type CountMode string

// CountModeParent counts distinct references into a named parent table
// instead of counting rows directly.
const CountModeParent CountMode = "parent"

// CountByConfig describes a non-default counting strategy. A nil config
// means plain row counting.
type CountByConfig struct {
	Mode        CountMode
	TargetTable string
}

// ErrInvalidCountBy is returned for any countBy value that is neither
// the row-count default nor a well-formed parent directive. Handlers map
// it to a 400 response with this message as the body.
var ErrInvalidCountBy = errors.New("Invalid countBy parameter")

const parentPrefix = "parent:"

// ParseCountBy classifies the raw countBy query parameter.
//
// An absent or empty value, or the literal token "rows" in any case,
// selects the default row-count behavior and yields (nil, nil). A value
// of the form "parent:<table>" selects parent mode, counting distinct
// references into <table>; the prefix is matched case-sensitively and
// the table name keeps its case. Anything else is rejected with
// ErrInvalidCountBy.
func ParseCountBy(raw string) (*CountByConfig, error) {
	v := strings.TrimSpace(raw)
	if v == "" || strings.EqualFold(v, "rows") {
		return nil, nil
	}
	if strings.HasPrefix(v, parentPrefix) {
		table := strings.TrimSpace(v[len(parentPrefix):])
		if table == "" {
			return nil, ErrInvalidCountBy
		}
		return &CountByConfig{Mode: CountModeParent, TargetTable: table}, nil
	}
	return nil, ErrInvalidCountBy
}
