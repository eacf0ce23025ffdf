package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/plantcare/internal/api"
)

func TestNewLocalID(t *testing.T) {
	id := NewLocalID()
	assert.True(t, IsLocalID(id))
	assert.NotEqual(t, id, NewLocalID())
	assert.False(t, IsLocalID("9b2f3c4e-0000-4000-8000-000000000000"))
}

func TestLocalCollection_Key(t *testing.T) {
	c := LocalCollection{LocalID: "local-1"}
	assert.Equal(t, "local-1", c.Key())
	assert.True(t, c.Pending())

	c.CollectionRecord = api.CollectionRecord{ID: "srv-1", IsSynced: true}
	assert.Equal(t, "srv-1", c.Key())
	assert.False(t, c.Pending())
}

func TestLocalCollection_PushID(t *testing.T) {
	c := LocalCollection{LocalID: "local-9b2f3c4e-0000-4000-8000-000000000000"}
	assert.Equal(t, "9b2f3c4e-0000-4000-8000-000000000000", c.PushID())

	c.ID = "srv-1"
	assert.Equal(t, "srv-1", c.PushID())
}
