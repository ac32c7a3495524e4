package stacks

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	dbtypes "github.com/angelmondragon/stackfinderz-backend/pkg/db/types"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stackfinderz-backend/pkg/errors"
)

const (
	MaxNameLength        = 100
	MaxLocationLength    = 100
	MinDescriptionLength = 10
	MaxDescriptionLength = 500
	MinFoundedYear       = 1900
)

// Profile is the descriptive part of a startup shared by catalog entries and contributions.
type Profile struct {
	Name        string
	Industry    string
	Scale       string
	Location    string
	Description string
	Founded     *int
	Employees   string
	Funding     string
	Website     *string
	TechStack   map[string][]string
}

// NormalizedProfile is a Profile that passed validation, with typed enums and cleaned values.
type NormalizedProfile struct {
	Name        string
	Industry    enums.Industry
	Scale       enums.Scale
	Location    string
	Description string
	Founded     *int
	Employees   string
	Funding     string
	Website     *string
	TechStack   dbtypes.TechStack
}

// Normalize trims and validates every field. All violations are collected into a single
// validation error whose details map field name to message.
func (p Profile) Normalize(now time.Time) (NormalizedProfile, error) {
	violations := map[string]string{}
	out := NormalizedProfile{
		Name:        strings.TrimSpace(p.Name),
		Location:    strings.TrimSpace(p.Location),
		Description: strings.TrimSpace(p.Description),
		Employees:   strings.TrimSpace(p.Employees),
		Funding:     strings.TrimSpace(p.Funding),
		TechStack:   sanitizeTechStack(p.TechStack),
	}

	checkLength(violations, "name", out.Name, 1, MaxNameLength)
	checkLength(violations, "location", out.Location, 1, MaxLocationLength)
	checkLength(violations, "description", out.Description, MinDescriptionLength, MaxDescriptionLength)

	switch industry := strings.TrimSpace(p.Industry); {
	case industry == "":
		violations["industry"] = "is required"
	default:
		parsed, err := enums.ParseIndustry(industry)
		if err != nil {
			violations["industry"] = "must be one of " + joinValues(enums.Industries)
		}
		out.Industry = parsed
	}

	switch scale := strings.TrimSpace(p.Scale); {
	case scale == "":
		violations["scale"] = "is required"
	default:
		parsed, err := enums.ParseScale(scale)
		if err != nil {
			violations["scale"] = "must be one of " + joinValues(enums.Scales)
		}
		out.Scale = parsed
	}

	if p.Founded != nil {
		year := *p.Founded
		if year < MinFoundedYear || year > now.Year() {
			violations["founded"] = fmt.Sprintf("must be between %d and %d", MinFoundedYear, now.Year())
		}
		out.Founded = &year
	}

	if p.Website != nil {
		if site := strings.TrimSpace(*p.Website); site != "" {
			if !isWebsite(site) {
				violations["website"] = "must be a valid URL"
			}
			out.Website = &site
		}
	}

	if len(violations) > 0 {
		return NormalizedProfile{}, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(violations)
	}
	return out, nil
}

func checkLength(violations map[string]string, field, value string, min, max int) {
	n := utf8.RuneCountInString(value)
	switch {
	case n == 0:
		violations[field] = "is required"
	case n < min:
		violations[field] = fmt.Sprintf("must be at least %d characters", min)
	case n > max:
		violations[field] = fmt.Sprintf("must be at most %d characters", max)
	}
}

// isWebsite accepts http(s) and ftp URLs as well as bare hosts such as
// "linear.app". The host must carry a top-level domain.
func isWebsite(raw string) bool {
	if strings.ContainsAny(raw, " \t\n") {
		return false
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp":
	default:
		return false
	}
	host := u.Hostname()
	dot := strings.LastIndexByte(host, '.')
	if dot <= 0 || dot == len(host)-1 {
		return false
	}
	for _, r := range host[dot+1:] {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// sanitizeTechStack keeps the known categories only, with blank entries dropped.
func sanitizeTechStack(in map[string][]string) dbtypes.TechStack {
	out := dbtypes.TechStack{}
	for _, category := range enums.TechCategories {
		items, ok := in[string(category)]
		if !ok {
			continue
		}
		out[string(category)] = items
	}
	return out.Sanitized()
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
