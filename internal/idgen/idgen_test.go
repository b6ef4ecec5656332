package idgen

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	first, second := New(), New()
	assert.NotEqual(t, first, second)
	_, err := uuid.Parse(first)
	assert.NoError(t, err)

	NewFunc = func() string { return "fixed" }
	defer func() { NewFunc = func() string { return uuid.New().String() } }()
	assert.Equal(t, "fixed", New())
}
