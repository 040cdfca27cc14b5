package acc

import "fmt"

// RFI is a record as returned by the platform. The schema of custom
// attributes differs per project, so records stay untyped.
type RFI map[string]any

// Well known RFI fields.
const (
	FieldID               = "id"
	FieldCustomIdentifier = "customIdentifier"
	FieldTitle            = "title"
	FieldQuestion         = "question"
	FieldStatus           = "status"
	FieldCreatedAt        = "createdAt"
	FieldUpdatedAt        = "updatedAt"
	FieldDueDate          = "dueDate"
	FieldAttachmentsCount = "attachmentsCount"
	FieldCustomAttributes = "customAttributes"
)

// ID returns the platform's unique identifier of the record.
func (r RFI) ID() string {
	switch v := r[FieldID].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Clone returns a shallow copy safe to add or remove top-level keys on.
func (r RFI) Clone() RFI {
	out := make(RFI, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

type SortField struct {
	Field string `json:"field"`
	Order string `json:"order"`
}

// SearchFilter is the filter object of search:rfis. Date ranges use the
// platform's "start..end" syntax with either side optional.
type SearchFilter struct {
	Status     []string `json:"status,omitempty"`
	AssignedTo []string `json:"assignedTo,omitempty"`
	CreatedAt  string   `json:"createdAt,omitempty"`
	UpdatedAt  string   `json:"updatedAt,omitempty"`
}

type SearchRequest struct {
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
	Search string       `json:"search,omitempty"`
	Sort   []SortField  `json:"sort,omitempty"`
	Filter SearchFilter `json:"filter"`
	Fields []string     `json:"fields,omitempty"`
}

type Pagination struct {
	Limit        int `json:"limit"`
	Offset       int `json:"offset"`
	TotalResults int `json:"totalResults"`
}

type SearchResponse struct {
	Pagination Pagination `json:"pagination"`
	Results    []RFI      `json:"results"`
}

// AttributeDefinition names one project level custom attribute.
type AttributeDefinition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type RFIType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Attachment struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	StorageURN  string `json:"storageUrn,omitempty"`
}

// Name is the label to show for the attachment.
func (a Attachment) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.FileName
}
