package models

import "strings"

// VendorType classifies how a business meets its customers
type VendorType string

const (
	VendorHomeBased     VendorType = "home_based"
	VendorMobile        VendorType = "mobile"
	VendorFixedLocation VendorType = "fixed_location"
)

// VendorTypes lists the closed set accepted in a brand profile
var VendorTypes = []VendorType{VendorHomeBased, VendorMobile, VendorFixedLocation}

// Valid reports whether v is one of the known vendor types
func (v VendorType) Valid() bool {
	for _, known := range VendorTypes {
		if v == known {
			return true
		}
	}
	return false
}

// Normalize maps unknown values onto the home-based vendor type
func (v VendorType) Normalize() VendorType {
	normalized := VendorType(strings.ToLower(strings.TrimSpace(string(v))))
	if normalized.Valid() {
		return normalized
	}
	return VendorHomeBased
}

// BusinessInfo is the factual part of a brand profile
type BusinessInfo struct {
	Name       string     `json:"name" dynamodbav:"Name"`
	VendorType VendorType `json:"vendorType" dynamodbav:"VendorType"`
	City       string     `json:"city" dynamodbav:"City"`
	Phone      string     `json:"phone,omitempty" dynamodbav:"Phone,omitempty"`
	Email      string     `json:"email,omitempty" dynamodbav:"Email,omitempty"`
	Hours      string     `json:"hours,omitempty" dynamodbav:"Hours,omitempty"`
	Stage      string     `json:"stage,omitempty" dynamodbav:"Stage,omitempty"`
}

// BrandIdentity holds the visual and verbal identity of a business
type BrandIdentity struct {
	PrimaryColor string `json:"primaryColor" dynamodbav:"PrimaryColor"`
	AccentColor  string `json:"accentColor" dynamodbav:"AccentColor"`
	Tagline      string `json:"tagline" dynamodbav:"Tagline"`
	Voice        string `json:"voice" dynamodbav:"Voice"`
}

// MenuItem is a single product or service offered
type MenuItem struct {
	Name        string `json:"name" dynamodbav:"Name"`
	Price       string `json:"price" dynamodbav:"Price"`
	Description string `json:"description,omitempty" dynamodbav:"Description,omitempty"`
}

// Media holds image URLs for the site
type Media struct {
	Logo    string   `json:"logo,omitempty" dynamodbav:"Logo,omitempty"`
	Hero    string   `json:"hero,omitempty" dynamodbav:"Hero,omitempty"`
	Gallery []string `json:"gallery,omitempty" dynamodbav:"Gallery,omitempty"`
}

// SocialLinks holds optional social profile handles or URLs
type SocialLinks struct {
	Instagram string `json:"instagram,omitempty" dynamodbav:"Instagram,omitempty"`
	Facebook  string `json:"facebook,omitempty" dynamodbav:"Facebook,omitempty"`
	Twitter   string `json:"twitter,omitempty" dynamodbav:"Twitter,omitempty"`
	TikTok    string `json:"tiktok,omitempty" dynamodbav:"TikTok,omitempty"`
}

// IsEmpty reports whether no social link is set
func (s *SocialLinks) IsEmpty() bool {
	return s == nil || (s.Instagram == "" && s.Facebook == "" && s.Twitter == "" && s.TikTok == "")
}

// Review is a customer testimonial
type Review struct {
	Text   string `json:"text" dynamodbav:"Text"`
	Author string `json:"author" dynamodbav:"Author"`
	Rating int    `json:"rating" dynamodbav:"Rating"`
}

// BrandProfile is the structured description of a business that drives site generation.
// It is built once per extraction and passed by value afterwards.
type BrandProfile struct {
	Business BusinessInfo  `json:"business" dynamodbav:"Business"`
	Brand    BrandIdentity `json:"brand" dynamodbav:"Brand"`
	Menu     []MenuItem    `json:"menu" dynamodbav:"Menu"`
	Media    Media         `json:"media" dynamodbav:"Media"`
	Social   *SocialLinks  `json:"social,omitempty" dynamodbav:"Social,omitempty"`
	Reviews  []Review      `json:"reviews,omitempty" dynamodbav:"Reviews,omitempty"`
}
