package rfis

import (
	"github.com/jrsteele09/acc-rfi-service/acc"
)

// Flatten lifts every custom attribute on rfi to a top level field named by
// the attribute's id and drops the nested container. A record without the
// container is returned as is, so flattening twice changes nothing.
func Flatten(rfi acc.RFI, mapping AttributeMapping) acc.RFI {
	raw, ok := rfi[acc.FieldCustomAttributes]
	if !ok {
		return rfi
	}
	out := rfi.Clone()
	delete(out, acc.FieldCustomAttributes)

	attrs, _ := raw.([]any)
	for _, a := range attrs {
		attr, ok := a.(map[string]any)
		if !ok {
			continue
		}
		id := attributeID(attr)
		if id == "" {
			continue
		}
		out[id] = mapping.Resolve(id, firstValue(attr))
	}
	return out
}

func attributeID(attr map[string]any) string {
	for _, key := range []string{"attributeDefinitionId", "id"} {
		if id, ok := attr[key].(string); ok && id != "" {
			return id
		}
	}
	return ""
}

func firstValue(attr map[string]any) any {
	if values, ok := attr["values"].([]any); ok {
		if len(values) == 0 {
			return nil
		}
		return values[0]
	}
	return attr["value"]
}
