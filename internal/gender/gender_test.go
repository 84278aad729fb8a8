package gender

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		raw  string
		want Gender
	}{
		{"F", Female},
		{"f", Female},
		{"M", Male},
		{"m", Male},
		{"FEMININO", Female},
		{"feminino", Female},
		{"MASCULINO", Male},
		{"masculino", Male},
		{"female", Female},
		{"FEMALE", Female},
		{"male", Male},
		{"  female  ", Female},
		{"", Unknown},
		{"x", Unknown},
		{"non-binary", Unknown},
		{"123", Unknown},
		{"unknown", Unknown},
	}

	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			assert.Equal(t, tc.want, Normalize(tc.raw))
		})
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	inputs := []string{"F", "M", "FEMININO", "MASCULINO", "female", "male", "", "garbage", "unknown"}
	for _, raw := range inputs {
		once := Normalize(raw)
		twice := Normalize(once.String())
		assert.Equal(t, once, twice, "normalize must be idempotent for %q", raw)
	}
}

func TestParse(t *testing.T) {
	g, ok := Parse("female")
	assert.True(t, ok)
	assert.Equal(t, Female, g)

	g, ok = Parse("Male")
	assert.True(t, ok)
	assert.Equal(t, Male, g)

	// Parse is stricter than Normalize: abbreviations are not canonical.
	_, ok = Parse("F")
	assert.False(t, ok)

	_, ok = Parse("anything-else")
	assert.False(t, ok)
}
