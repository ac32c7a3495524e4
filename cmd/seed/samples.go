package main

import (
	"github.com/angelmondragon/stackfinderz-backend/internal/stacks"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func tech(frontend, backend, database, infrastructure []string) map[string][]string {
	return map[string][]string{
		string(enums.TechFrontend):       frontend,
		string(enums.TechBackend):        backend,
		string(enums.TechDatabase):       database,
		string(enums.TechInfrastructure): infrastructure,
	}
}

// sampleStacks is the demo catalog loaded on a fresh environment.
var sampleStacks = []stacks.Profile{
	{
		Name:        "Stripe",
		Industry:    string(enums.IndustryFintech),
		Scale:       string(enums.ScaleUnicorn),
		Location:    "San Francisco, CA",
		Description: "Online payment processing platform that enables businesses to accept payments over the internet.",
		Founded:     intPtr(2010),
		Employees:   "4000+",
		Funding:     "$2.2B (Public)",
		Website:     strPtr("https://stripe.com"),
		TechStack: tech(
			[]string{"React", "TypeScript", "Next.js"},
			[]string{"Ruby on Rails", "Node.js", "Go"},
			[]string{"PostgreSQL", "Redis", "MongoDB"},
			[]string{"AWS", "Kubernetes", "Docker"},
		),
	},
	{
		Name:        "Airbnb",
		Industry:    string(enums.IndustryECommerce),
		Scale:       string(enums.ScalePublic),
		Location:    "San Francisco, CA",
		Description: "Online marketplace for short-term homestays and experiences.",
		Founded:     intPtr(2008),
		Employees:   "6000+",
		Funding:     "Public (ABNB)",
		Website:     strPtr("https://airbnb.com"),
		TechStack: tech(
			[]string{"React", "JavaScript", "Sass"},
			[]string{"Ruby on Rails", "Java", "Python"},
			[]string{"MySQL", "Redis", "Elasticsearch"},
			[]string{"AWS", "Kubernetes", "Kafka"},
		),
	},
	{
		Name:        "Notion",
		Industry:    string(enums.IndustrySaaS),
		Scale:       string(enums.ScaleSeriesC),
		Location:    "San Francisco, CA",
		Description: "All-in-one workspace for notes, tasks, wikis, and databases.",
		Founded:     intPtr(2016),
		Employees:   "500+",
		Funding:     "$343M Series C",
		Website:     strPtr("https://notion.so"),
		TechStack: tech(
			[]string{"React", "TypeScript", "Electron"},
			[]string{"Node.js", "TypeScript"},
			[]string{"PostgreSQL", "Redis"},
			[]string{"AWS", "CloudFlare", "Docker"},
		),
	},
	{
		Name:        "Discord",
		Industry:    string(enums.IndustrySocialMedia),
		Scale:       string(enums.ScaleUnicorn),
		Location:    "San Francisco, CA",
		Description: "Voice, video and text communication service designed for creating communities.",
		Founded:     intPtr(2015),
		Employees:   "600+",
		Funding:     "$995M (Unicorn)",
		Website:     strPtr("https://discord.com"),
		TechStack: tech(
			[]string{"React", "JavaScript", "Electron"},
			[]string{"Elixir", "Python", "Rust"},
			[]string{"Cassandra", "MongoDB", "Redis"},
			[]string{"Google Cloud", "Kubernetes", "Docker"},
		),
	},
	{
		Name:        "Figma",
		Industry:    string(enums.IndustrySaaS),
		Scale:       string(enums.ScaleUnicorn),
		Location:    "San Francisco, CA",
		Description: "Collaborative interface design tool that runs in the browser.",
		Founded:     intPtr(2012),
		Employees:   "800+",
		Funding:     "$333M (Acquired by Adobe)",
		Website:     strPtr("https://figma.com"),
		TechStack: tech(
			[]string{"TypeScript", "React", "WebAssembly"},
			[]string{"Node.js", "TypeScript", "C++"},
			[]string{"PostgreSQL", "Redis"},
			[]string{"AWS", "Kubernetes", "Docker"},
		),
	},
	{
		Name:        "Canva",
		Industry:    string(enums.IndustrySaaS),
		Scale:       string(enums.ScaleUnicorn),
		Location:    "Sydney, Australia",
		Description: "Graphic design platform that allows users to create social media graphics, presentations, and other visual content.",
		Founded:     intPtr(2013),
		Employees:   "3000+",
		Funding:     "$71B Valuation",
		Website:     strPtr("https://canva.com"),
		TechStack: tech(
			[]string{"React", "TypeScript", "WebGL"},
			[]string{"Java", "Scala", "Python"},
			[]string{"MongoDB", "Redis", "Elasticsearch"},
			[]string{"AWS", "Kubernetes", "Docker"},
		),
	},
}
