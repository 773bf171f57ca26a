package models

// Prospect is the owning business record a site is generated for
type Prospect struct {
	Id       string            `dynamodbav:"Id"`
	Name     string            `dynamodbav:"Name"`
	Metadata map[string]string `dynamodbav:"Metadata,omitempty"`
}
