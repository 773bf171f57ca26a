package services

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"punctuation", "Mia's Cocinita!!", "mias-cocinita"},
		{"padding and case", "  mia's   cocinita  ", "mias-cocinita"},
		{"hyphen runs", "Taco -- Loco", "taco-loco"},
		{"digits", "Route 66 Diner", "route-66-diner"},
		{"nothing usable", "!!!", "site"},
		{"empty", "", "site"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestSlugify_Truncates(t *testing.T) {
	slug := Slugify("The Extraordinarily Long Named Family Tamale Kitchen of Austin")

	assert.LessOrEqual(t, len(slug), 40)
	assert.False(t, strings.HasSuffix(slug, "-"))
	assert.True(t, strings.HasPrefix(slug, "the-extraordinarily-long"))
}

func TestProjectNamer(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	namer := &ProjectNamer{Prefix: "site", Now: func() time.Time { return fixed }}

	assert.Equal(t, "site-mias-cocinita", namer.Name("Mia's Cocinita", "ABCDEF123456", "prj_1"))
	assert.Equal(t, "site-mias-cocinita-abcdef12", namer.Name("Mia's Cocinita", "ABCDEF123456", ""))
	assert.Equal(t, "site-mias-cocinita-abc", namer.Name("Mia's Cocinita", "abc", ""))
	assert.Equal(t, "site-mias-cocinita-"+strconv.FormatInt(1700000000000, 36), namer.Name("Mia's Cocinita", "", ""))
}

func TestProjectNamer_StableForOwner(t *testing.T) {
	namer := NewProjectNamer("site")

	first := namer.Name("Mia's Cocinita!!", "owner-1234567", "")
	second := namer.Name("  mia's   cocinita  ", "owner-1234567", "")

	assert.Equal(t, first, second)
}
