package services

import (
	"strings"
	"unicode"

	"github.com/imyashkale/sitebuilder/internal/models"
)

// ParseFileSet recovers a file set document from free model text.
// It tolerates one surrounding code fence and any prose before the first
// "{" or after the last "}".
func ParseFileSet(raw string) (models.FileSet, error) {
	text := stripFence(strings.TrimSpace(raw))

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &GenerationParseError{Reason: "no JSON object found", Raw: raw}
	}

	files, problems, err := models.ValidateFileSetDocument([]byte(text[start : end+1]))
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		return nil, &GenerationParseError{Reason: strings.Join(problems, "; "), Raw: raw}
	}

	return files.Dedupe(), nil
}

// stripFence removes a code fence that opens before the JSON object and one
// that closes after it. Fences inside file contents are left alone.
func stripFence(text string) string {
	if fence := strings.Index(text, "```"); fence != -1 {
		if brace := strings.Index(text, "{"); brace == -1 || fence < brace {
			text = strings.TrimLeftFunc(text[fence+3:], unicode.IsLetter)
		}
	}

	if fence := strings.LastIndex(text, "```"); fence != -1 && fence > strings.LastIndex(text, "}") {
		text = text[:fence]
	}

	return strings.TrimSpace(text)
}
