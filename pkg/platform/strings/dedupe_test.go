package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "removes duplicates preserving order",
			input: []string{"openid", "profile", "openid", "email"},
			want:  []string{"openid", "profile", "email"},
		},
		{
			name:  "trims whitespace before comparing",
			input: []string{" openid ", "openid", "  profile"},
			want:  []string{"openid", "profile"},
		},
		{
			name:  "drops empty and blank entries",
			input: []string{"", "  ", "offline_access"},
			want:  []string{"offline_access"},
		},
		{
			name:  "nil input stays nil",
			input: nil,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.input))
		})
	}
}

func TestMergeFields(t *testing.T) {
	got := MergeFields([]string{"openid"}, "profile email profile")
	assert.Equal(t, []string{"openid", "profile", "email"}, got)

	// Repeated merges of the same scope string are idempotent.
	got = MergeFields(got, "profile email")
	assert.Equal(t, []string{"openid", "profile", "email"}, got)
}
