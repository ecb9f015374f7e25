package models

import (
	"testing"

	"gorm.io/datatypes"
)

func TestAchievement_Validate(t *testing.T) {
	tests := []struct {
		name       string
		maxTier    int
		thresholds []int64
		rewards    []int64
		wantErr    bool
	}{
		{"Valid three tiers", 3, []int64{50, 100, 200}, []int64{10, 20, 30}, false},
		{"Single tier", 1, []int64{1}, []int64{0}, false},
		{"No tiers", 0, nil, nil, true},
		{"Length mismatch", 3, []int64{50, 100}, []int64{10, 20, 30}, true},
		{"Not increasing", 3, []int64{50, 50, 200}, []int64{10, 20, 30}, true},
		{"Zero threshold", 2, []int64{0, 10}, []int64{1, 2}, true},
		{"Negative reward", 2, []int64{5, 10}, []int64{1, -2}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Achievement{
				Name:           "Sharpshooter",
				Category:       "betting",
				MaxTier:        tt.maxTier,
				TierThresholds: datatypes.JSONSlice[int64](tt.thresholds),
				TierRewards:    datatypes.JSONSlice[int64](tt.rewards),
			}
			err := a.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
