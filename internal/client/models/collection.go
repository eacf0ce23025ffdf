// Package models defines the client's local data model.
package models

import (
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/plantcare/internal/api"
)

const localPrefix = "local-"

// LocalCollection is a collection row in the local store. LocalID is the
// stable client key; the embedded record's ID stays empty until the server
// has acknowledged the row.
type LocalCollection struct {
	LocalID string
	api.CollectionRecord
}

// NewLocalID returns a temporary key of the form local-{uuid}.
func NewLocalID() string {
	return localPrefix + uuid.NewString()
}

// IsLocalID reports whether key was issued by NewLocalID.
func IsLocalID(key string) bool {
	return strings.HasPrefix(key, localPrefix)
}

// Key is the server id when known, else the local id.
func (c *LocalCollection) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.LocalID
}

// Pending reports whether the row has edits the server has not seen.
func (c *LocalCollection) Pending() bool {
	return !c.IsSynced
}

// PushID is the id sent to the server for this row: the server id when
// known, else the UUID inside the local key. Reusing the same id on every
// push lets the server recognise a retry of an already-applied create.
func (c *LocalCollection) PushID() string {
	if c.ID != "" || !IsLocalID(c.LocalID) {
		return c.ID
	}
	return strings.TrimPrefix(c.LocalID, localPrefix)
}
