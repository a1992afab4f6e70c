package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactly10!", truncate("exactly10!", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestYesNo(t *testing.T) {
	assert.Equal(t, "yes", yesNo(true))
	assert.Equal(t, "no", yesNo(false))
}
