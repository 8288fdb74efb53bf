package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "xyz", 3},
		{"kafka", "kafka", 0},
		{"kafak", "kafka", 2},
		{"kitten", "sitting", 3},
		{"psql", "psql2", 1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, levenshtein(tt.a, tt.b))
		})
	}
}

func TestSuggestTypes(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"kafak", []string{"kafka"}},
		{"redsi", []string{"redis"}},
		{"psq", []string{"psql", "psql2"}},
		{"bastian", []string{"bastion"}},
		{"kafka", []string{}},
		{"zzzzzzzzzz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, suggestTypes(tt.input))
		})
	}
}
