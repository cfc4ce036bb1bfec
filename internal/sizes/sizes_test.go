package sizes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		title string
		raw   string
		want  []string
	}{
		{
			name:  "kids title overrides everything",
			title: "Team X Home Kids 25/26",
			raw:   "S-4XL",
			want:  []string{"16", "18", "20", "22", "24", "26", "28"},
		},
		{
			name:  "kid singular also matches",
			title: "Retro Kid Kit",
			raw:   "",
			want:  []string{"16", "18", "20", "22", "24", "26", "28"},
		},
		{
			name:  "numeric range S-2XL includes XXL",
			title: "Jersey 25/26",
			raw:   "S-2XL",
			want:  []string{"S", "M", "L", "XL", "XXL"},
		},
		{
			name:  "numeric range S-4XL expands the full ladder",
			title: "Jersey 25/26",
			raw:   "S-4XL",
			want:  []string{"S", "M", "L", "XL", "XXL", "XXXL", "XXXXL"},
		},
		{
			name:  "single-X range S-XL expands through the ladder",
			title: "Jersey",
			raw:   "S-XL",
			want:  []string{"S", "M", "L", "XL"},
		},
		{
			name:  "repeated-X range S-XXXL",
			title: "Jersey",
			raw:   "S-XXXL",
			want:  []string{"S", "M", "L", "XL", "XXL", "XXXL"},
		},
		{
			name:  "digit residue after range is ignored",
			title: "Jersey",
			raw:   "S-XXL9",
			want:  []string{"S", "M", "L", "XL", "XXL"},
		},
		{
			name:  "residue on numeric range",
			title: "Jersey",
			raw:   "S-2XL2",
			want:  []string{"S", "M", "L", "XL", "XXL"},
		},
		{
			name:  "range with spaces",
			title: "Jersey",
			raw:   "S - 3XL",
			want:  []string{"S", "M", "L", "XL", "XXL", "XXXL"},
		},
		{
			name:  "explicit tokens deduped and ladder sorted",
			title: "Jersey",
			raw:   "XL M S M L",
			want:  []string{"S", "M", "L", "XL"},
		},
		{
			name:  "no hint falls back to default adult set",
			title: "Jersey 25/26",
			raw:   "",
			want:  []string{"S", "M", "L", "XL", "XXL"},
		},
		{
			name:  "noise only falls back to default adult set",
			title: "Jersey",
			raw:   "one size fits most",
			want:  []string{"S", "M", "L", "XL", "XXL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.title, tt.raw))
		})
	}
}

func TestNormalizeIsPure(t *testing.T) {
	first := Normalize("Jersey 25/26", "S-2XL")
	for i := 0; i < 3; i++ {
		assert.Equal(t, first, Normalize("Jersey 25/26", "S-2XL"))
	}
	// The returned slice is a copy; mutating it must not leak into the
	// package vocabulary.
	first[0] = "mutated"
	assert.Equal(t, []string{"S", "M", "L", "XL", "XXL"}, Normalize("Jersey 25/26", "S-2XL"))
}

func TestRender(t *testing.T) {
	assert.Equal(t, "S, M, L, XL, XXL", Render([]string{"S", "M", "L", "XL", "XXL"}))
	assert.Equal(t, "", Render(nil))
}
