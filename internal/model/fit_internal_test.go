package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShuffleSeed(t *testing.T) {
	assert.Equal(t, int64(42), shuffleSeed(42))
	assert.Equal(t, int64(-3), shuffleSeed(-3))
	assert.NotZero(t, shuffleSeed(0), "zero selects a time-based seed")
}
