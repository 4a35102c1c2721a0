package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestNihssCatalog(t *testing.T) {
	if len(NihssItems) != nihssItemCount {
		t.Fatalf("Expected %d NIHSS items, got %d", nihssItemCount, len(NihssItems))
	}

	maxTotal := 0
	seen := make(map[NihssItem]bool)
	for _, item := range NihssItems {
		if seen[item.Key] {
			t.Errorf("Duplicate NIHSS item %s", item.Key)
		}
		seen[item.Key] = true
		if len(item.Options) != item.MaxScore+1 {
			t.Errorf("Item %s: expected %d options, got %d", item.Key, item.MaxScore+1, len(item.Options))
		}
		maxTotal += item.MaxScore
	}
	if maxTotal != 42 {
		t.Errorf("Expected maximum NIHSS of 42, got %d", maxTotal)
	}
}

func TestNihssAssessment_Set(t *testing.T) {
	tests := []struct {
		name    string
		key     NihssItem
		value   int
		wantErr bool
	}{
		{"Lowest value", NihssConsciousness, 0, false},
		{"Highest value", NihssArmLeft, 4, false},
		{"Above range", NihssGaze, 3, true},
		{"Negative", NihssFacial, -1, true},
		{"Unknown item", NihssItem("pupils"), 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a NihssAssessment
			err := a.Set(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var validation *ValidationError
				if !errors.As(err, &validation) {
					t.Errorf("Expected ValidationError, got %T", err)
				}
				return
			}
			if got := a.Get(tt.key); got != tt.value {
				t.Errorf("Get() = %d, want %d", got, tt.value)
			}
		})
	}
}

func TestNihssAssessment_JSON(t *testing.T) {
	a, err := NewNihssAssessment(map[NihssItem]int{NihssLanguage: 3, NihssAtaxia: 1})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Evaluated() {
		t.Error("Expected assessment to be evaluated")
	}

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	var decoded NihssAssessment
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded != a {
		t.Errorf("Decoded assessment differs: %v vs %v", decoded.Subscores(), a.Subscores())
	}

	if err := json.Unmarshal([]byte(`{"language":9}`), &decoded); err == nil {
		t.Error("Expected out-of-range subscore to be rejected")
	}
}

func TestAspectsAssessment(t *testing.T) {
	var a AspectsAssessment
	for _, region := range AspectsRegions {
		if !a.Intact(region.Key) {
			t.Errorf("Region %s should default to intact", region.Key)
		}
	}

	if err := a.Set(AspectsInsular, false); err != nil {
		t.Fatal(err)
	}
	if a.Intact(AspectsInsular) {
		t.Error("Insular region should be flagged")
	}
	if err := a.Set(AspectsRegion("m7"), false); err == nil {
		t.Error("Expected unknown region to be rejected")
	}

	var decoded AspectsAssessment
	if err := json.Unmarshal([]byte(`{"insular":false,"m1":true}`), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded != a {
		t.Error("Decoded ASPECTS differs from the assessment it was built from")
	}
}
