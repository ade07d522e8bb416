package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(SessionOpen))
	assert.True(t, ValidStatus(SessionClosed))
	assert.True(t, ValidStatus(SessionFinalized))
	assert.False(t, ValidStatus(""))
	assert.False(t, ValidStatus("archived"))
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{SessionOpen, SessionClosed, true},
		{SessionOpen, SessionFinalized, true},
		{SessionClosed, SessionFinalized, true},
		{SessionOpen, SessionOpen, true},      // idempotent re-assert
		{SessionClosed, SessionClosed, true},  // idempotent close
		{SessionClosed, SessionOpen, false},   // never backwards
		{SessionFinalized, SessionClosed, false},
		{SessionFinalized, SessionOpen, false},
		{"bogus", SessionClosed, false},
		{SessionOpen, "bogus", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
