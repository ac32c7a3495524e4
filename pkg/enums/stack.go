package enums

import "fmt"

// StackStatus maps to the stack_status enum in Postgres.
type StackStatus string

const (
	StackStatusApproved StackStatus = "approved"
	StackStatusPending  StackStatus = "pending"
	StackStatusRejected StackStatus = "rejected"
)

var validStackStatuses = []StackStatus{
	StackStatusApproved,
	StackStatusPending,
	StackStatusRejected,
}

// IsValid reports whether the value matches the canonical stack_status enum.
func (s StackStatus) IsValid() bool {
	for _, candidate := range validStackStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Industry maps to the industry enum in Postgres.
type Industry string

const (
	IndustryFintech     Industry = "Fintech"
	IndustryEdTech      Industry = "EdTech"
	IndustryHealthTech  Industry = "HealthTech"
	IndustryECommerce   Industry = "E-commerce"
	IndustrySaaS        Industry = "SaaS"
	IndustryAIML        Industry = "AI/ML"
	IndustryGaming      Industry = "Gaming"
	IndustrySocialMedia Industry = "Social Media"
	IndustryOther       Industry = "Other"
)

// Industries lists every accepted industry in display order.
var Industries = []Industry{
	IndustryFintech,
	IndustryEdTech,
	IndustryHealthTech,
	IndustryECommerce,
	IndustrySaaS,
	IndustryAIML,
	IndustryGaming,
	IndustrySocialMedia,
	IndustryOther,
}

// IsValid reports whether the value matches the canonical industry enum.
func (i Industry) IsValid() bool {
	for _, candidate := range Industries {
		if candidate == i {
			return true
		}
	}
	return false
}

// ParseIndustry converts raw input into Industry.
func ParseIndustry(value string) (Industry, error) {
	for _, candidate := range Industries {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid industry %q", value)
}

// Scale maps to the company_scale enum in Postgres.
type Scale string

const (
	ScaleSeed    Scale = "Seed"
	ScaleSeriesA Scale = "Series A"
	ScaleSeriesB Scale = "Series B"
	ScaleSeriesC Scale = "Series C+"
	ScaleUnicorn Scale = "Unicorn"
	ScalePublic  Scale = "Public"
)

// Scales lists every accepted scale in funding order.
var Scales = []Scale{
	ScaleSeed,
	ScaleSeriesA,
	ScaleSeriesB,
	ScaleSeriesC,
	ScaleUnicorn,
	ScalePublic,
}

// IsValid reports whether the value matches the canonical company_scale enum.
func (s Scale) IsValid() bool {
	for _, candidate := range Scales {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseScale converts raw input into Scale.
func ParseScale(value string) (Scale, error) {
	for _, candidate := range Scales {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid scale %q", value)
}

// TechCategory names a bucket of the tech stack mapping.
type TechCategory string

const (
	TechFrontend       TechCategory = "frontend"
	TechBackend        TechCategory = "backend"
	TechDatabase       TechCategory = "database"
	TechInfrastructure TechCategory = "infrastructure"
	TechMobile         TechCategory = "mobile"
	TechOther          TechCategory = "other"
)

// TechCategories lists the categories in display order.
var TechCategories = []TechCategory{
	TechFrontend,
	TechBackend,
	TechDatabase,
	TechInfrastructure,
	TechMobile,
	TechOther,
}

// IsValid reports whether the category is one of the known buckets.
func (c TechCategory) IsValid() bool {
	for _, candidate := range TechCategories {
		if candidate == c {
			return true
		}
	}
	return false
}
