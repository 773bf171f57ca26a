package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// MaxTaglineWords bounds the brand tagline length
const MaxTaglineWords = 8

const hexColorPattern = "^#([0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$"

// BrandProfileSchema is the JSON schema for a brand profile. It is sent to the
// model as the tool input schema and used to validate what comes back.
var BrandProfileSchema = map[string]any{
	"type":     "object",
	"required": []string{"business", "brand", "menu", "media"},
	"properties": map[string]any{
		"business": map[string]any{
			"type":     "object",
			"required": []string{"name", "vendorType", "city"},
			"properties": map[string]any{
				"name":       map[string]any{"type": "string", "minLength": 1},
				"vendorType": map[string]any{"type": "string", "enum": []string{string(VendorHomeBased), string(VendorMobile), string(VendorFixedLocation)}},
				"city":       map[string]any{"type": "string", "minLength": 1},
				"phone":      map[string]any{"type": "string"},
				"email":      map[string]any{"type": "string"},
				"hours":      map[string]any{"type": "string"},
				"stage":      map[string]any{"type": "string"},
			},
		},
		"brand": map[string]any{
			"type":     "object",
			"required": []string{"primaryColor", "accentColor", "tagline", "voice"},
			"properties": map[string]any{
				"primaryColor": map[string]any{"type": "string", "pattern": hexColorPattern},
				"accentColor":  map[string]any{"type": "string", "pattern": hexColorPattern},
				"tagline":      map[string]any{"type": "string", "minLength": 1},
				"voice":        map[string]any{"type": "string", "minLength": 1},
			},
		},
		"menu": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"name", "price"},
				"properties": map[string]any{
					"name":        map[string]any{"type": "string", "minLength": 1},
					"price":       map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
				},
			},
		},
		"media": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"logo":    map[string]any{"type": "string"},
				"hero":    map[string]any{"type": "string"},
				"gallery": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
		},
		"social": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"instagram": map[string]any{"type": "string"},
				"facebook":  map[string]any{"type": "string"},
				"twitter":   map[string]any{"type": "string"},
				"tiktok":    map[string]any{"type": "string"},
			},
		},
		"reviews": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"text", "author", "rating"},
				"properties": map[string]any{
					"text":   map[string]any{"type": "string"},
					"author": map[string]any{"type": "string"},
					"rating": map[string]any{"type": "integer", "minimum": 1, "maximum": 5},
				},
			},
		},
	},
}

// FileSetSchema is the JSON schema for a generated or edited file set document
var FileSetSchema = map[string]any{
	"type":     "object",
	"required": []string{"files"},
	"properties": map[string]any{
		"files": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"path", "content"},
				"properties": map[string]any{
					"path":    map[string]any{"type": "string", "minLength": 1},
					"content": map[string]any{"type": "string"},
				},
			},
		},
	},
}

var (
	compileOnce    sync.Once
	brandSchema    *gojsonschema.Schema
	fileSetSchema  *gojsonschema.Schema
	compileFailure error
)

func compiledSchemas() (*gojsonschema.Schema, *gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		var err error
		brandSchema, err = gojsonschema.NewSchema(gojsonschema.NewGoLoader(BrandProfileSchema))
		if err != nil {
			compileFailure = fmt.Errorf("compile brand profile schema: %w", err)
			return
		}
		fileSetSchema, err = gojsonschema.NewSchema(gojsonschema.NewGoLoader(FileSetSchema))
		if err != nil {
			compileFailure = fmt.Errorf("compile file set schema: %w", err)
		}
	})
	return brandSchema, fileSetSchema, compileFailure
}

// ValidateBrandProfile checks raw against the brand profile schema and decodes it.
// A non-empty problems slice means the payload was rejected.
func ValidateBrandProfile(raw []byte) (BrandProfile, []string, error) {
	schema, _, err := compiledSchemas()
	if err != nil {
		return BrandProfile{}, nil, err
	}

	if problems := validate(schema, raw); len(problems) > 0 {
		return BrandProfile{}, problems, nil
	}

	var profile BrandProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return BrandProfile{}, []string{err.Error()}, nil
	}

	if words := len(strings.Fields(profile.Brand.Tagline)); words > MaxTaglineWords {
		return BrandProfile{}, []string{fmt.Sprintf("brand.tagline: has %d words, at most %d allowed", words, MaxTaglineWords)}, nil
	}

	return profile, nil, nil
}

// ValidateFileSetDocument checks raw against the file set schema and decodes it
func ValidateFileSetDocument(raw []byte) (FileSet, []string, error) {
	_, schema, err := compiledSchemas()
	if err != nil {
		return nil, nil, err
	}

	if problems := validate(schema, raw); len(problems) > 0 {
		return nil, problems, nil
	}

	var doc FileSetDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, []string{err.Error()}, nil
	}
	return doc.Files, nil, nil
}

func validate(schema *gojsonschema.Schema, raw []byte) []string {
	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		// the document itself is not JSON
		return []string{err.Error()}
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		problems[i] = desc.String()
	}
	return problems
}
