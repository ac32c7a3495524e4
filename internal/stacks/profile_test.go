package stacks

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stackfinderz-backend/pkg/errors"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func validProfile() Profile {
	founded := 2019
	site := "https://linear.app"
	return Profile{
		Name:        "  Linear ",
		Industry:    "SaaS",
		Scale:       "Series B",
		Location:    "San Francisco",
		Description: "Issue tracking built for speed.",
		Founded:     &founded,
		Website:     &site,
		TechStack: map[string][]string{
			"frontend": {"React", "  ", "TypeScript "},
			"backend":  {"Node.js"},
			"unknown":  {"COBOL"},
		},
	}
}

func violations(t *testing.T, err error) map[string]string {
	t.Helper()
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok, "details type %T", typed.Details())
	return details
}

func TestNormalizeValidProfile(t *testing.T) {
	out, err := validProfile().Normalize(fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "Linear", out.Name)
	assert.Equal(t, enums.IndustrySaaS, out.Industry)
	assert.Equal(t, enums.ScaleSeriesB, out.Scale)
	assert.Equal(t, []string{"React", "TypeScript"}, out.TechStack["frontend"])
	assert.Equal(t, []string{"Node.js"}, out.TechStack["backend"])
	assert.NotContains(t, out.TechStack, "unknown")
	require.NotNil(t, out.Website)
	assert.Equal(t, "https://linear.app", *out.Website)
}

func TestNormalizeReportsEveryViolation(t *testing.T) {
	founded := 1850
	site := "not a url"
	_, err := Profile{
		Industry:    "Biotech",
		Scale:       "Series Z",
		Description: "short",
		Founded:     &founded,
		Website:     &site,
	}.Normalize(fixedNow)

	details := violations(t, err)
	assert.Equal(t, "is required", details["name"])
	assert.Equal(t, "is required", details["location"])
	assert.Contains(t, details["description"], "at least 10")
	assert.Contains(t, details["industry"], "must be one of")
	assert.Contains(t, details["scale"], "must be one of")
	assert.Contains(t, details["founded"], "between 1900 and 2026")
	assert.Equal(t, "must be a valid URL", details["website"])
	assert.Len(t, details, 7)
}

func TestNormalizeBoundaries(t *testing.T) {
	p := validProfile()
	p.Name = strings.Repeat("a", MaxNameLength)
	p.Description = strings.Repeat("d", MaxDescriptionLength)
	year := fixedNow.Year()
	p.Founded = &year
	_, err := p.Normalize(fixedNow)
	require.NoError(t, err)

	p.Name = strings.Repeat("a", MaxNameLength+1)
	p.Description = strings.Repeat("d", MaxDescriptionLength+1)
	next := year + 1
	p.Founded = &next
	details := violations(t, func() error { _, err := p.Normalize(fixedNow); return err }())
	assert.Contains(t, details["name"], "at most 100")
	assert.Contains(t, details["description"], "at most 500")
	assert.Contains(t, details, "founded")
}

func TestNormalizeWebsiteForms(t *testing.T) {
	for _, site := range []string{"linear.app", "stripe.com/docs", "https://linear.app", "http://www.figma.com:8080/file", "ftp://files.example.org"} {
		p := validProfile()
		p.Website = &site
		out, err := p.Normalize(fixedNow)
		require.NoError(t, err, site)
		assert.Equal(t, site, *out.Website)
	}
	for _, site := range []string{"localhost", "linear.", "https://", "javascript://linear.app", "ws://linear.app", "linear.app/a b", "linear.123"} {
		p := validProfile()
		p.Website = &site
		details := violations(t, func() error { _, err := p.Normalize(fixedNow); return err }())
		assert.Equal(t, "must be a valid URL", details["website"], site)
	}
}

func TestNormalizeBlankWebsiteIsAbsent(t *testing.T) {
	p := validProfile()
	blank := "   "
	p.Website = &blank
	out, err := p.Normalize(fixedNow)
	require.NoError(t, err)
	assert.Nil(t, out.Website)
}

func TestNormalizeWhitespaceOnlyFieldsAreMissing(t *testing.T) {
	p := validProfile()
	p.Name = "   "
	p.Location = "\t"
	details := violations(t, func() error { _, err := p.Normalize(fixedNow); return err }())
	assert.Equal(t, "is required", details["name"])
	assert.Equal(t, "is required", details["location"])
}
