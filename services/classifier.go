package services

import (
	"strings"

	"property-pipeline/models"
)

// Descriptor selects which free-text field a rule is tested against.
type Descriptor int

const (
	PrimaryDescriptor Descriptor = iota
	SecondaryDescriptor
)

// ClassifierRule tags a property when its descriptor contains Substring.
// Matching is case-sensitive.
type ClassifierRule struct {
	Field     Descriptor
	Substring string
	Type      models.BuildingType
}

// DefaultRules are evaluated in order; the first match wins. " ARMS" needs
// its leading space: "ARMSTRONG HOUSE" is a House.
var DefaultRules = []ClassifierRule{
	{PrimaryDescriptor, "BARN", models.BuildingFarm},
	{PrimaryDescriptor, "FARM", models.BuildingFarm},
	{PrimaryDescriptor, "LAND AT", models.BuildingLandOnly},
	{PrimaryDescriptor, "BUNGALOW", models.BuildingBungalow},
	{PrimaryDescriptor, "HOTEL", models.BuildingHotel},
	{PrimaryDescriptor, " ARMS", models.BuildingPub},
	{SecondaryDescriptor, "FLAT", models.BuildingFlat},
}

// Classifier maps building descriptors to a BuildingType.
type Classifier struct {
	rules []ClassifierRule
}

// NewClassifier creates a Classifier over rules, or DefaultRules when rules
// is empty.
func NewClassifier(rules []ClassifierRule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Classifier{rules: rules}
}

// Classify returns the type of the first rule matching primary (paon) or
// secondary (saon), or House when none match. Empty text never matches.
func (c *Classifier) Classify(primary, secondary string) models.BuildingType {
	for _, r := range c.rules {
		text := primary
		if r.Field == SecondaryDescriptor {
			text = secondary
		}
		if text != "" && strings.Contains(text, r.Substring) {
			return r.Type
		}
	}
	return models.BuildingHouse
}
