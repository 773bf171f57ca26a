package services

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	maxSlugLength   = 40
	ownerTokenChars = 8
	fallbackSlug    = "site"
)

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSeparators = regexp.MustCompile(`[\s-]+`)
)

// Slugify lowercases name, drops anything outside [a-z0-9], whitespace and
// hyphens, collapses runs of separators to one hyphen and truncates to 40
// characters. An empty result becomes "site".
func Slugify(name string) string {
	slug := slugDisallowed.ReplaceAllString(strings.ToLower(name), "")
	slug = slugSeparators.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// ProjectNamer derives hosting project names
type ProjectNamer struct {
	Prefix string
	Now    func() time.Time
}

// NewProjectNamer creates a namer using prefix and the wall clock
func NewProjectNamer(prefix string) *ProjectNamer {
	return &ProjectNamer{Prefix: prefix, Now: time.Now}
}

// Name returns the project name for a business.
// Redeploys into an existing project use <prefix>-<slug>; first deploys for a
// known owner append the first 8 characters of its id; anonymous runs append
// a base36 timestamp.
func (n *ProjectNamer) Name(businessName, ownerID, existingProjectID string) string {
	base := n.Prefix + "-" + Slugify(businessName)

	switch {
	case existingProjectID != "":
		return base
	case ownerID != "":
		token := strings.ToLower(ownerID)
		if len(token) > ownerTokenChars {
			token = token[:ownerTokenChars]
		}
		return base + "-" + token
	default:
		return base + "-" + strconv.FormatInt(n.Now().UnixMilli(), 36)
	}
}
