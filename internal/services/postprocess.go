package services

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/imyashkale/sitebuilder/internal/logger"
	"github.com/imyashkale/sitebuilder/internal/models"
)

// Well-known paths rewritten by the post-processor
const (
	EntryPagePath = "index.html"
	AppShellPath  = "src/App.tsx"
	ManifestPath  = "package.json"
)

const (
	analyticsPackage = "@vercel/analytics"
	analyticsVersion = "^1.3.1"
	analyticsImport  = "import { Analytics } from '@vercel/analytics/react';"
	analyticsMount   = "<Analytics />"

	structuredDataMarker = `id="site-builder-structured-data"`
	badgeID              = "site-builder-badge"
)

// badgeAnchors are tried in order; only the first one found is used
var badgeAnchors = []string{"</footer>", "</Footer>", "</body>"}

// PostProcess rewrites the entry page, app shell and manifest of files.
// Other files pass through unchanged and the input is not modified.
func PostProcess(files models.FileSet, profile models.BrandProfile) models.FileSet {
	out := make(models.FileSet, len(files))
	for i, f := range files {
		switch f.Path {
		case EntryPagePath:
			f.Content = processEntryPage(f.Content, profile)
		case AppShellPath:
			f.Content = InjectAnalytics(f.Content)
		case ManifestPath:
			f.Content = ensureAnalyticsDependency(f.Content)
		}
		out[i] = f
	}
	return out
}

func processEntryPage(page string, profile models.BrandProfile) string {
	if !strings.Contains(page, structuredDataMarker) {
		if i := strings.Index(page, "</head>"); i != -1 {
			page = page[:i] + headTags(profile) + page[i:]
		} else {
			logger.Warn("Entry page has no </head>, skipping metadata injection")
		}
	}

	if strings.Contains(page, `id="`+badgeID+`"`) {
		return page
	}
	for _, anchor := range badgeAnchors {
		if i := strings.Index(page, anchor); i != -1 {
			return page[:i] + badgeMarkup(profile) + page[i:]
		}
	}

	logger.Warn("Entry page has no footer or body anchor, skipping badge")
	return page
}

func headTags(profile models.BrandProfile) string {
	title := html.EscapeString(profile.Business.Name)
	description := html.EscapeString(profile.Brand.Tagline)
	image := profile.Media.Hero
	if image == "" {
		image = profile.Media.Logo
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  <meta property=\"og:title\" content=\"%s\" />\n", title)
	fmt.Fprintf(&b, "  <meta property=\"og:description\" content=\"%s\" />\n", description)
	b.WriteString("  <meta property=\"og:type\" content=\"website\" />\n")
	if image != "" {
		fmt.Fprintf(&b, "  <meta property=\"og:image\" content=\"%s\" />\n", html.EscapeString(image))
	}
	b.WriteString("  <meta name=\"twitter:card\" content=\"summary_large_image\" />\n")
	fmt.Fprintf(&b, "  <meta name=\"twitter:title\" content=\"%s\" />\n", title)
	fmt.Fprintf(&b, "  <meta name=\"twitter:description\" content=\"%s\" />\n", description)
	if image != "" {
		fmt.Fprintf(&b, "  <meta name=\"twitter:image\" content=\"%s\" />\n", html.EscapeString(image))
	}

	if data, err := json.MarshalIndent(structuredData(profile), "  ", "  "); err == nil {
		fmt.Fprintf(&b, "  <script %s type=\"application/ld+json\">\n  %s\n  </script>\n", structuredDataMarker, data)
	}

	return b.String()
}

func badgeMarkup(profile models.BrandProfile) string {
	return fmt.Sprintf(`<div id="%s" style="position:fixed;bottom:12px;right:12px;padding:4px 10px;border-radius:999px;font:12px sans-serif;background:%s;color:#fff">Made for %s</div>`+"\n",
		badgeID, html.EscapeString(profile.Brand.PrimaryColor), html.EscapeString(profile.Business.Name))
}

type postalAddress struct {
	Type     string `json:"@type"`
	Locality string `json:"addressLocality"`
}

type offer struct {
	Type  string `json:"@type"`
	Price string `json:"price"`
}

type menuItem struct {
	Type        string `json:"@type"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Offers      offer  `json:"offers"`
}

type menuSection struct {
	Type  string     `json:"@type"`
	Name  string     `json:"name"`
	Items []menuItem `json:"hasMenuItem"`
}

type localBusiness struct {
	Context     string        `json:"@context"`
	Type        string        `json:"@type"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Address     postalAddress `json:"address"`
	Telephone   string        `json:"telephone,omitempty"`
	Email       string        `json:"email,omitempty"`
	Image       string        `json:"image,omitempty"`
	Menu        *menuSection  `json:"hasMenu,omitempty"`
}

// structuredData builds the schema.org listing embedded in the entry page.
// encoding/json escapes '<' so the block cannot close its script tag early.
func structuredData(profile models.BrandProfile) localBusiness {
	listing := localBusiness{
		Context:     "https://schema.org",
		Type:        "LocalBusiness",
		Name:        profile.Business.Name,
		Description: profile.Brand.Tagline,
		Address:     postalAddress{Type: "PostalAddress", Locality: profile.Business.City},
		Telephone:   profile.Business.Phone,
		Email:       profile.Business.Email,
		Image:       profile.Media.Logo,
	}

	if len(profile.Menu) > 0 {
		section := &menuSection{Type: "MenuSection", Name: "Menu"}
		for _, item := range profile.Menu {
			section.Items = append(section.Items, menuItem{
				Type:        "MenuItem",
				Name:        item.Name,
				Description: item.Description,
				Offers:      offer{Type: "Offer", Price: item.Price},
			})
		}
		listing.Menu = section
	}

	return listing
}

var (
	appDeclPattern = regexp.MustCompile(`(?m)\bfunction\s+App\s*\(|\bconst\s+App\b[^=\n]*=`)
	importPattern  = regexp.MustCompile(`(?ms)^import\b.*?['"][^'"\n]+['"];?[ \t]*$`)
)

// InjectAnalytics mounts the analytics component in the app shell. It only
// changes the file when the render can be wrapped, and is a no-op when the
// analytics package is already imported.
func InjectAnalytics(shell string) string {
	if strings.Contains(shell, analyticsPackage) {
		return shell
	}

	wrapped, ok := wrapAppRender(shell)
	if !ok {
		logger.Warn("App shell render not recognised, skipping analytics injection")
		return shell
	}

	return addImport(wrapped, analyticsImport)
}

func addImport(src, stmt string) string {
	matches := importPattern.FindAllStringIndex(src, -1)
	if len(matches) == 0 {
		return stmt + "\n" + src
	}
	end := matches[len(matches)-1][1]
	return src[:end] + "\n" + stmt + src[end:]
}

// wrapAppRender wraps the root element returned by App and the analytics
// mount in one fragment. It handles a parenthesized return and a bare
// return of a balanced JSX element.
func wrapAppRender(src string) (string, bool) {
	loc := appDeclPattern.FindStringIndex(src)
	if loc == nil {
		return src, false
	}

	var bodyOpen int
	if strings.HasPrefix(src[loc[0]:], "function") {
		paramsClose := matchClose(src, loc[1]-1, '(', ')')
		if paramsClose == -1 {
			return src, false
		}
		rel := strings.IndexByte(src[paramsClose:], '{')
		if rel == -1 {
			return src, false
		}
		bodyOpen = paramsClose + rel
	} else {
		rel := strings.Index(src[loc[1]:], "=>")
		if rel == -1 {
			return src, false
		}
		j := skipSpace(src, loc[1]+rel+2)
		if j >= len(src) {
			return src, false
		}
		switch src[j] {
		case '(':
			return wrapParenthesized(src, j)
		case '{':
			bodyOpen = j
		default:
			return src, false
		}
	}

	bodyClose := matchClose(src, bodyOpen, '{', '}')
	if bodyClose == -1 {
		return src, false
	}

	ret := lastTopLevelReturn(src, bodyOpen, bodyClose)
	if ret == -1 {
		return src, false
	}

	j := skipSpace(src, ret+len("return"))
	if j >= len(src) {
		return src, false
	}
	switch src[j] {
	case '(':
		return wrapParenthesized(src, j)
	case '<':
		return wrapBareReturn(src, j, bodyClose)
	}
	return src, false
}

func wrapParenthesized(src string, open int) (string, bool) {
	closing := matchClose(src, open, '(', ')')
	if closing == -1 {
		return src, false
	}

	inner := strings.TrimSpace(src[open+1 : closing])
	if !strings.HasPrefix(inner, "<") {
		return src, false
	}

	replacement := "(\n    <>\n      " + inner + "\n      " + analyticsMount + "\n    </>\n  )"
	return src[:open] + replacement + src[closing+1:], true
}

// wrapBareReturn wraps a JSX element returned without parentheses. The
// element may span lines but must close inside the body and before the
// statement ends.
func wrapBareReturn(src string, start, bodyClose int) (string, bool) {
	end := jsxElementEnd(src[:bodyClose], start)
	if end == -1 {
		return src, false
	}

	k := end
	for k < len(src) && (src[k] == ' ' || src[k] == '\t') {
		k++
	}
	if k < len(src) && src[k] != ';' && src[k] != '\n' && src[k] != '\r' && src[k] != '}' {
		return src, false
	}

	replacement := "(\n    <>\n      " + src[start:end] + "\n      " + analyticsMount + "\n    </>\n  )"
	return src[:start] + replacement + src[end:], true
}

// jsxElementEnd returns the index just past the element opening at start, or
// -1 when its tags do not balance
func jsxElementEnd(src string, start int) int {
	depth := 0
	for k := start; k < len(src); {
		switch src[k] {
		case '{':
			closing := matchClose(src, k, '{', '}')
			if closing == -1 {
				return -1
			}
			k = closing + 1
			continue
		case '<':
			tagEnd := jsxTagEnd(src, k)
			if tagEnd == -1 {
				return -1
			}
			switch {
			case src[k+1] == '/':
				depth--
			case strings.HasSuffix(strings.TrimSpace(src[k:tagEnd]), "/"):
			default:
				depth++
			}
			k = tagEnd + 1
			switch {
			case depth == 0:
				return k
			case depth < 0:
				return -1
			}
			continue
		}
		k++
	}
	return -1
}

// jsxTagEnd returns the index of the '>' closing the tag at open, skipping
// quoted attribute values and expressions
func jsxTagEnd(src string, open int) int {
	for k := open + 1; k < len(src); k++ {
		switch src[k] {
		case '"', '\'':
			closing := strings.IndexByte(src[k+1:], src[k])
			if closing == -1 {
				return -1
			}
			k += closing + 1
		case '{':
			closing := matchClose(src, k, '{', '}')
			if closing == -1 {
				return -1
			}
			k = closing
		case '>':
			return k
		}
	}
	return -1
}

// lastTopLevelReturn finds the last "return" keyword directly inside the body,
// ignoring anything between parentheses such as JSX text
func lastTopLevelReturn(src string, open, closing int) int {
	last := -1
	braces, parens := 0, 0
	for k := open; k < closing; k++ {
		switch src[k] {
		case '{':
			braces++
		case '}':
			braces--
		case '(':
			parens++
		case ')':
			parens--
		case 'r':
			if braces == 1 && parens == 0 && strings.HasPrefix(src[k:], "return") &&
				!isIdentByte(src, k-1) && !isIdentByte(src, k+len("return")) {
				last = k
			}
		}
	}
	return last
}

// matchClose returns the index of the bracket closing the one at open, or -1
func matchClose(src string, open int, o, c byte) int {
	depth := 0
	for k := open; k < len(src); k++ {
		switch src[k] {
		case o:
			depth++
		case c:
			depth--
			if depth == 0 {
				return k
			}
		}
	}
	return -1
}

func skipSpace(src string, i int) int {
	for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r') {
		i++
	}
	return i
}

func isIdentByte(src string, i int) bool {
	if i < 0 || i >= len(src) {
		return false
	}
	ch := src[i]
	return ch == '_' || ch == '$' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
}

// ensureAnalyticsDependency adds the analytics package to the manifest's
// dependencies, keeping key order. Unparseable manifests are returned as-is.
func ensureAnalyticsDependency(manifest string) string {
	if !gjson.Valid(manifest) || !gjson.Parse(manifest).IsObject() {
		logger.Warn("Manifest is not a JSON object, leaving it unchanged")
		return manifest
	}

	deps := gjson.Get(manifest, "dependencies")
	if deps.Exists() {
		if !deps.IsObject() {
			return manifest
		}
		if _, ok := deps.Map()[analyticsPackage]; ok {
			return manifest
		}
	}

	updated, err := sjson.Set(manifest, `dependencies.\`+analyticsPackage, analyticsVersion)
	if err != nil {
		logger.WithField("error", err.Error()).Warn("Failed to add analytics dependency")
		return manifest
	}

	return string(pretty.PrettyOptions([]byte(updated), &pretty.Options{Width: 80, Indent: "  "}))
}
