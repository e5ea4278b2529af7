package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinOrNone(t *testing.T) {
	assert.Equal(t, "(none)", JoinOrNone(nil))
	assert.Equal(t, "(none)", JoinOrNone([]string{}))
	assert.Equal(t, "node01", JoinOrNone([]string{"node01"}))
	assert.Equal(t, "node01, node02", JoinOrNone([]string{"node01", "node02"}))
}

func TestPluralize(t *testing.T) {
	assert.Equal(t, "host", Pluralize(1, "host", "hosts"))
	assert.Equal(t, "hosts", Pluralize(0, "host", "hosts"))
	assert.Equal(t, "hosts", Pluralize(3, "host", "hosts"))
}

func TestDedupe(t *testing.T) {
	tests := []struct {
		name         string
		input        []string
		wantUnique   []string
		wantRepeated []string
	}{
		{
			name:       "no duplicates",
			input:      []string{"a", "b", "c"},
			wantUnique: []string{"a", "b", "c"},
		},
		{
			name:         "first occurrence wins",
			input:        []string{"b", "a", "b", "c", "a"},
			wantUnique:   []string{"b", "a", "c"},
			wantRepeated: []string{"b", "a"},
		},
		{
			name:       "blank entries dropped",
			input:      []string{" ", "a", ""},
			wantUnique: []string{"a"},
		},
		{
			name:  "empty",
			input: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unique, repeated := Dedupe(tt.input)
			assert.Equal(t, tt.wantUnique, unique)
			assert.Equal(t, tt.wantRepeated, repeated)
		})
	}
}
