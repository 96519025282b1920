package store

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLockKey_DeterministicPerUserAndProblemType(t *testing.T) {
	u := uuid.New()
	a := lockKey(u, "tone_1")
	b := lockKey(u, "tone_1")
	assert.Equal(t, a, b)
}

func TestLockKey_DiffersAcrossProblemTypes(t *testing.T) {
	u := uuid.New()
	a := lockKey(u, "tone_1")
	b := lockKey(u, "vowel_1")
	assert.NotEqual(t, a, b)
}

func TestLockKey_DiffersAcrossUsers(t *testing.T) {
	a := lockKey(uuid.New(), "tone_1")
	b := lockKey(uuid.New(), "tone_1")
	assert.NotEqual(t, a, b)
}
