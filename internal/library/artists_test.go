package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitArtists(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"Daft Punk", []string{"Daft Punk"}},
		{"A, B", []string{"A", "B"}},
		{"A; B & C", []string{"A", "B", "C"}},
		{"Tyler, The Creator & Kali Uchis", []string{"Tyler, The Creator", "Kali Uchis"}},
		{" , ", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitArtists(tt.raw))
		})
	}
}

func TestTrack_Artists(t *testing.T) {
	tr := &Track{Artist: "A & B"}
	assert.Equal(t, []string{"A", "B"}, tr.Artists())
}
