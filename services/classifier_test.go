package services

import (
	"testing"

	"property-pipeline/models"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		primary, secondary string
		want               models.BuildingType
	}{
		{"THE OLD BARN", "", models.BuildingFarm},
		{"UPPER FARM", "", models.BuildingFarm},
		{"LAND AT CROSS ASH", "", models.BuildingLandOnly},
		{"ROSE BUNGALOW", "", models.BuildingBungalow},
		{"ANGEL HOTEL", "", models.BuildingHotel},
		{"THE KINGS ARMS", "", models.BuildingPub},
		{"ARMSTRONG HOUSE", "", models.BuildingHouse},
		{"12", "FLAT 3", models.BuildingFlat},
		{"12", "", models.BuildingHouse},
		{"", "", models.BuildingHouse},
		{"barn cottage", "", models.BuildingHouse},
		// primary rules outrank the secondary descriptor
		{"BARN FARM", "FLAT 1", models.BuildingFarm},
		{"HOTEL FLATS", "FLAT 2", models.BuildingHotel},
	}

	for _, tt := range tests {
		got := c.Classify(tt.primary, tt.secondary)
		if got != tt.want {
			t.Errorf("Classify(%q, %q) = %q; want %q", tt.primary, tt.secondary, got, tt.want)
		}
	}
}

func TestClassifyCustomRules(t *testing.T) {
	c := NewClassifier([]ClassifierRule{{PrimaryDescriptor, "MILL", models.BuildingFarm}})

	if got := c.Classify("THE MILL", ""); got != models.BuildingFarm {
		t.Errorf("custom rule: got %q, want %q", got, models.BuildingFarm)
	}
	if got := c.Classify("ANGEL HOTEL", ""); got != models.BuildingHouse {
		t.Errorf("default rules should not apply: got %q", got)
	}
}
