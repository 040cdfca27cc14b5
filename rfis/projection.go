package rfis

import (
	"github.com/jrsteele09/acc-rfi-service/acc"
)

// DefaultFields are projected when the caller asks for none.
var DefaultFields = []string{acc.FieldID, acc.FieldCustomIdentifier, acc.FieldTitle, acc.FieldStatus}

// Project keeps only the named fields. A requested field the record lacks
// is present with an empty string.
func Project(rfi acc.RFI, fields []string) acc.RFI {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	out := make(acc.RFI, len(fields))
	for _, f := range fields {
		v, ok := rfi[f]
		if !ok || v == nil {
			v = ""
		}
		out[f] = v
	}
	return out
}
