package domain

import (
	"errors"
	"testing"
)

func TestDefaultPricingCoversAllCategories(t *testing.T) {
	p := DefaultPricing()

	for _, c := range []Category{CategoryClothing, CategoryFurniture, CategoryAccessory} {
		spec, err := p.Lookup(c)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", c, err)
		}
		if spec.Cost <= 0 {
			t.Fatalf("category %s has non-positive cost %d", c, spec.Cost)
		}
		if spec.PromptTemplate == "" {
			t.Fatalf("category %s has no prompt template", c)
		}
	}
}

func TestLookupUnknownCategory(t *testing.T) {
	p := DefaultPricing()

	_, err := p.Lookup("spacecraft")
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestVideoSpecFixedShape(t *testing.T) {
	v := DefaultPricing().Video

	if v.Cost != 6 {
		t.Fatalf("video cost = %d, want 6", v.Cost)
	}
	if v.DurationSeconds != 5 {
		t.Fatalf("video duration = %d, want 5", v.DurationSeconds)
	}
	if v.DefaultPrompt == "" || v.Resolution == "" || v.AspectRatio == "" {
		t.Fatalf("video defaults incomplete: %+v", v)
	}
}

func TestJobStatusTerminal(t *testing.T) {
	terminal := map[JobStatus]bool{
		JobStatusPending:    false,
		JobStatusProcessing: false,
		JobStatusCompleted:  true,
		JobStatusFailed:     true,
	}
	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Fatalf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}
