package common

import (
	"github.com/google/uuid"
)

// NewDocumentID generates a unique document ID with the "doc_" prefix
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}

// NewSourceID generates a unique source ID with the "src_" prefix
func NewSourceID() string {
	return "src_" + uuid.New().String()
}

// NewClientID generates a unique client ID with the "cli_" prefix
func NewClientID() string {
	return "cli_" + uuid.New().String()
}

// NewGroupID generates a unique group ID with the "grp_" prefix
func NewGroupID() string {
	return "grp_" + uuid.New().String()
}

// NewProfileID generates a unique client profile ID with the "prf_" prefix
func NewProfileID() string {
	return "prf_" + uuid.New().String()
}

// NewNodeID generates a unique graph node ID with the "node_" prefix
func NewNodeID() string {
	return "node_" + uuid.New().String()
}
