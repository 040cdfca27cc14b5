package acc

import (
	"context"
	"net/http"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// attributeSampleSize is how many RFIs are read to infer definitions when the
// definitions endpoint is forbidden.
const attributeSampleSize = 2

// GetCustomAttributeDefinitions lists the project's custom attributes sorted
// by name. Users without project admin rights get a 403 from the definitions
// endpoint; in that case definitions are inferred from a sample of RFIs.
func (c *Client) GetCustomAttributeDefinitions(ctx context.Context) ([]AttributeDefinition, error) {
	data, err := c.call(ctx, http.MethodGet, projectPath(c.p.ProjectID(), "attributes"), nil)
	if err == nil {
		return parseDefinitions(data), nil
	}
	if !IsStatus(err, http.StatusForbidden) {
		return nil, err
	}

	log.Warn().Str("session_id", c.sessionID).Msg("Attribute definitions forbidden, inferring from sample RFIs")
	sample, err := c.call(ctx, http.MethodPost, projectPath(c.p.ProjectID(), "search:rfis"),
		SearchRequest{Limit: attributeSampleSize})
	if err != nil {
		return nil, err
	}
	return inferDefinitions(sample), nil
}

func parseDefinitions(data []byte) []AttributeDefinition {
	list := gjson.GetBytes(data, "results")
	if !list.Exists() {
		list = gjson.GetBytes(data, "attributes")
	}
	if !list.Exists() && gjson.ParseBytes(data).IsArray() {
		list = gjson.ParseBytes(data)
	}

	defs := map[string]string{}
	list.ForEach(func(_, def gjson.Result) bool {
		addDefinition(defs, def.Get("id").String(), def.Get("name").String())
		return true
	})
	return sortedDefinitions(defs)
}

func inferDefinitions(data []byte) []AttributeDefinition {
	defs := map[string]string{}
	gjson.GetBytes(data, "results").ForEach(func(_, rfi gjson.Result) bool {
		rfi.Get(FieldCustomAttributes).ForEach(func(_, attr gjson.Result) bool {
			id := attr.Get("attributeDefinitionId").String()
			if id == "" {
				id = attr.Get("id").String()
			}
			addDefinition(defs, id, attr.Get("name").String())
			return true
		})
		return true
	})
	return sortedDefinitions(defs)
}

func addDefinition(defs map[string]string, id, name string) {
	if id == "" {
		return
	}
	if existing, ok := defs[id]; ok && existing != "" {
		return
	}
	defs[id] = name
}

func sortedDefinitions(defs map[string]string) []AttributeDefinition {
	out := make([]AttributeDefinition, 0, len(defs))
	for id, name := range defs {
		if name == "" {
			name = id
		}
		out = append(out, AttributeDefinition{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}
