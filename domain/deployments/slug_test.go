package deployments

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var slugShape = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"feature/ADD-login":       "feature-add-login",
		"Fix Bug #123":            "fix-bug-123",
		"a_b.c#d e":               "a-b-c-d-e",
		"--leading-and-trailing--": "leading-and-trailing",
		"!!!":                     "preview",
		"":                        "preview",
		"already-a-slug":          "already-a-slug",
	}
	for input, want := range cases {
		assert.Equal(t, want, Slugify(input), "input %q", input)
	}
}

func TestSlugify_TruncatesAndStripsTrailingDash(t *testing.T) {
	long := strings.Repeat("a", 70) + "-" + strings.Repeat("b", 10)
	got := Slugify(long)
	assert.LessOrEqual(t, len(got), 63)
	assert.False(t, strings.HasSuffix(got, "-"))
}

func TestSlugify_InvariantsHoldAcrossInputs(t *testing.T) {
	inputs := []string{
		"Hello_World.Branch#7 ",
		"////",
		"UPPER-CASE",
		"emoji-🚀-branch",
		strings.Repeat("x-", 40),
	}
	for _, in := range inputs {
		got := Slugify(in)
		assert.LessOrEqual(t, len(got), 63)
		assert.True(t, slugShape.MatchString(got), "slug %q for input %q did not match shape", got, in)
	}
}
