package hub

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindMatching(t *testing.T) {
	assert.True(t, IsNotFound(NotFoundf("student %s not found", "a@x.edu")))
	assert.True(t, IsUnauthorized(Unauthorizedf("nope")))
	assert.True(t, IsInvalid(Invalidf("bad input")))
	assert.True(t, IsConflict(Conflictf("already decided")))

	assert.False(t, IsNotFound(Conflictf("already decided")))
	assert.False(t, IsConflict(errors.New("plain error")))
	assert.False(t, IsInvalid(nil))
}

func TestErrorMatchingThroughWrapping(t *testing.T) {
	err := fmt.Errorf("decide: %w", Conflictf("submission already approved"))
	assert.True(t, IsConflict(err))
	assert.False(t, IsInvalid(err))
}
