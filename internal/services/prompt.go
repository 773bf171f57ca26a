package services

import (
	"fmt"
	"strings"

	"github.com/imyashkale/sitebuilder/internal/models"
)

const noneProvided = "(none provided)"

// AddressPolicy controls how a business address is presented on the site
type AddressPolicy string

const (
	AddressHidden         AddressPolicy = "hidden"
	AddressScheduleLinked AddressPolicy = "schedule_linked"
	AddressProminentMap   AddressPolicy = "prominent_with_map"
)

// Variant holds the generation rules that differ by vendor type
type Variant struct {
	PrimaryCTA   string
	SecondaryCTA string
	Address      AddressPolicy
	AddressRule  string
}

var variants = map[models.VendorType]Variant{
	models.VendorHomeBased: {
		PrimaryCTA:   "Order Now",
		SecondaryCTA: "View Menu",
		Address:      AddressHidden,
		AddressRule:  "Never show a street address. Mention the city only and say pickup details are shared after ordering.",
	},
	models.VendorMobile: {
		PrimaryCTA:   "Find Us Today",
		SecondaryCTA: "See the Menu",
		Address:      AddressScheduleLinked,
		AddressRule:  "Do not show a fixed address. Add a \"Where we'll be\" schedule section and link the primary CTA to it.",
	},
	models.VendorFixedLocation: {
		PrimaryCTA:   "Visit Us",
		SecondaryCTA: "View Menu",
		Address:      AddressProminentMap,
		AddressRule:  "Show the address prominently near the top with an embedded map and opening hours beside it.",
	},
}

// VariantFor returns the rule set for vendorType. Unknown values get the home-based rules.
func VariantFor(vendorType models.VendorType) Variant {
	return variants[vendorType.Normalize()]
}

// Prompt is a system/user prompt pair
type Prompt struct {
	System string
	User   string
}

const outputContract = `Respond with a single JSON object and nothing else. No prose, no markdown, no code fences.
The object has exactly one top-level key "files": an array of {"path": string, "content": string}.
Every "content" is the complete file text, never a diff or a placeholder.`

const techStack = `Stack: React 18, TypeScript, Vite, Tailwind CSS via CDN script in index.html.
Required files: index.html, package.json, vite.config.ts, tsconfig.json, src/main.tsx, src/App.tsx.
package.json must include the "react", "react-dom", "vite", "@vitejs/plugin-react" and "typescript" dependencies and a "build" script of "vite build".
The head of index.html must contain a </head> closing tag. Put the page footer in a <footer> element.`

const structureRules = `JSX rules (the build fails if any is broken):
- Every component returns exactly one root element.
- Conditionals that render more than one element wrap them in a fragment <>...</>.
- Every tag is closed, including void elements like <img /> and <br />.
- src/App.tsx exports a default function App with a parenthesized return.`

// ComposeGenerationPrompt builds the prompt pair for a first-time site generation
func ComposeGenerationPrompt(profile models.BrandProfile) Prompt {
	variant := VariantFor(profile.Business.VendorType)

	var system strings.Builder
	system.WriteString("You build single-page marketing sites for small food businesses.\n\n")
	system.WriteString(outputContract + "\n\n")
	system.WriteString(techStack + "\n\n")
	system.WriteString(structureRules + "\n\n")
	fmt.Fprintf(&system, "Primary call to action label: %q.\n", variant.PrimaryCTA)
	fmt.Fprintf(&system, "Secondary call to action label: %q.\n", variant.SecondaryCTA)
	fmt.Fprintf(&system, "Address display (%s): %s\n", variant.Address, variant.AddressRule)
	system.WriteString("Use the brand colors exactly as given and write copy in the brand voice. Do not invent menu items, prices, reviews or contact details.")

	return Prompt{
		System: system.String(),
		User:   describeProfile(profile),
	}
}

// ComposeEditPrompt builds the prompt pair for applying an instruction to existing files
func ComposeEditPrompt(files models.FileSet, instruction string) Prompt {
	var system strings.Builder
	system.WriteString("You edit an existing React site on request.\n\n")
	system.WriteString(outputContract + "\n\n")
	system.WriteString("Return ONLY the files you changed or created. Files you leave out are kept exactly as they are. Never return a file unchanged.\n\n")
	system.WriteString(structureRules)

	var user strings.Builder
	fmt.Fprintf(&user, "Change request:\n%s\n\nCurrent files:\n", strings.TrimSpace(instruction))
	for _, f := range files {
		fmt.Fprintf(&user, "\n=== %s ===\n%s\n", f.Path, f.Content)
	}

	return Prompt{System: system.String(), User: user.String()}
}

func describeProfile(p models.BrandProfile) string {
	var b strings.Builder

	b.WriteString("BUSINESS\n")
	line(&b, "Name", p.Business.Name)
	line(&b, "Type", string(p.Business.VendorType.Normalize()))
	line(&b, "City", p.Business.City)
	line(&b, "Phone", p.Business.Phone)
	line(&b, "Email", p.Business.Email)
	line(&b, "Hours", p.Business.Hours)
	line(&b, "Stage", p.Business.Stage)

	b.WriteString("\nBRAND\n")
	line(&b, "Primary color", p.Brand.PrimaryColor)
	line(&b, "Accent color", p.Brand.AccentColor)
	line(&b, "Tagline", p.Brand.Tagline)
	line(&b, "Voice", p.Brand.Voice)

	b.WriteString("\nMENU\n")
	if len(p.Menu) == 0 {
		b.WriteString(noneProvided + "\n")
	}
	for _, item := range p.Menu {
		if item.Description != "" {
			fmt.Fprintf(&b, "- %s | %s | %s\n", item.Name, item.Price, item.Description)
		} else {
			fmt.Fprintf(&b, "- %s | %s\n", item.Name, item.Price)
		}
	}

	b.WriteString("\nMEDIA\n")
	line(&b, "Logo", p.Media.Logo)
	line(&b, "Hero", p.Media.Hero)
	if len(p.Media.Gallery) == 0 {
		line(&b, "Gallery", "")
	} else {
		line(&b, "Gallery", strings.Join(p.Media.Gallery, ", "))
	}

	b.WriteString("\nSOCIAL\n")
	if p.Social.IsEmpty() {
		b.WriteString(noneProvided + "\n")
	} else {
		line(&b, "Instagram", p.Social.Instagram)
		line(&b, "Facebook", p.Social.Facebook)
		line(&b, "Twitter", p.Social.Twitter)
		line(&b, "TikTok", p.Social.TikTok)
	}

	b.WriteString("\nREVIEWS\n")
	if len(p.Reviews) == 0 {
		b.WriteString(noneProvided + "\n")
	}
	for _, r := range p.Reviews {
		fmt.Fprintf(&b, "- %d/5 %q by %s\n", r.Rating, r.Text, r.Author)
	}

	return b.String()
}

func line(b *strings.Builder, label, value string) {
	if strings.TrimSpace(value) == "" {
		value = noneProvided
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}
