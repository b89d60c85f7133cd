package models

// Reserved group names. "public" is readable by anonymous callers;
// "admin" grants administrative operations.
const (
	GroupPublic = "public"
	GroupAdmin  = "admin"
)

// Group is a content-scoping boundary that owns sources, documents, and
// clients. Groups are not clients.
type Group struct {
	GroupID     string                 `json:"group_id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Active      bool                   `json:"active"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
