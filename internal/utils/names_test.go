package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHandle(t *testing.T) {
	assert.Equal(t, "plzcult", NormalizeHandle(" @plzcult "))
	assert.Equal(t, "Vikessy", NormalizeHandle("Vikessy"))
	assert.Equal(t, "", NormalizeHandle("@"))
}

func TestMatchesParticipant(t *testing.T) {
	tests := []struct {
		name        string
		ref         string
		displayName string
		handle      string
		want        bool
	}{
		{"display name with at sign", "@Dasha", "Dasha", "", true},
		{"display name exact", "Leva Master", "Leva Master", "", true},
		{"display name is case sensitive", "dasha", "Dasha", "", false},
		{"handle case insensitive", "@levamaster", "Лёва", "LevaMaster", true},
		{"handle stored with at sign", "BA_ANSHEE", "Anya", "@BA_ANSHEE", true},
		{"empty ref", "@", "", "", false},
		{"no match", "@someone", "Dasha", "dasha_t", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesParticipant(tt.ref, tt.displayName, tt.handle))
		})
	}
}
