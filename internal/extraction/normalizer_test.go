package extraction

import (
	"errors"
	"reflect"
	"testing"

	"github.com/spigell/bidwin/internal/tender"
)

const extractionJSON = `{
  "items": [
    {"item_name": "Epoxy Primer", "specs": "Zinc phosphate, 50-75 microns", "quantity": "500 L"},
    {"item_name": "PU Topcoat", "specs": "Glossy finish", "quantity": 120}
  ],
  "tests": ["Salt Spray Test", "Third Party Inspection"]
}`

func TestNormalizeFencedAndPlainAreIdentical(t *testing.T) {
	plainReqs, plainTests, err := Normalize(extractionJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fencedReqs, fencedTests, err := Normalize("```json\n" + extractionJSON + "\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(plainReqs, fencedReqs) {
		t.Fatalf("requirements differ:\n%+v\n%+v", plainReqs, fencedReqs)
	}
	if !reflect.DeepEqual(plainTests, fencedTests) {
		t.Fatalf("tests differ: %v vs %v", plainTests, fencedTests)
	}

	if len(plainReqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(plainReqs))
	}
	if plainReqs[0].Quantity != "500 L" {
		t.Fatalf("unexpected quantity: %q", plainReqs[0].Quantity)
	}
	if plainReqs[1].Quantity != "120" {
		t.Fatalf("expected numeric quantity to become text, got %q", plainReqs[1].Quantity)
	}
	if len(plainTests) != 2 || plainTests[1] != "Third Party Inspection" {
		t.Fatalf("unexpected tests: %v", plainTests)
	}
}

func TestNormalizeCoercesShapes(t *testing.T) {
	cases := []struct {
		name      string
		raw       string
		wantReqs  []tender.Requirement
		wantTests []string
	}{
		{
			name:      "single item object and bare test string",
			raw:       `{"items": {"item_name": "Primer", "quantity": "10 units"}, "tests": "FAT"}`,
			wantReqs:  []tender.Requirement{{ItemName: "Primer", Quantity: "10 units"}},
			wantTests: []string{"FAT"},
		},
		{
			name:      "missing keys",
			raw:       `{"notes": "nothing here"}`,
			wantReqs:  []tender.Requirement{},
			wantTests: []string{},
		},
		{
			name:      "nested specs object",
			raw:       `{"items": [{"item_name": "Coating", "specs": {"dft": "200 microns"}}]}`,
			wantReqs:  []tender.Requirement{{ItemName: "Coating", Specs: `{"dft":"200 microns"}`}},
			wantTests: []string{},
		},
		{
			name:      "string item and null quantity",
			raw:       `{"items": ["Thinner", {"item_name": "Primer", "quantity": null}], "tests": [null, "Routine Test"]}`,
			wantReqs:  []tender.Requirement{{ItemName: "Thinner"}, {ItemName: "Primer"}},
			wantTests: []string{"Routine Test"},
		},
		{
			name:      "scalar and null items",
			raw:       `{"items": [5, null, true, {"item_name": "Primer"}], "tests": []}`,
			wantReqs:  []tender.Requirement{{ItemName: "5"}, {ItemName: "true"}, {ItemName: "Primer"}},
			wantTests: []string{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reqs, tests, err := Normalize(tc.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(reqs, tc.wantReqs) {
				t.Fatalf("unexpected requirements: %+v", reqs)
			}
			if !reflect.DeepEqual(tests, tc.wantTests) {
				t.Fatalf("unexpected tests: %v", tests)
			}
		})
	}
}

func TestNormalizeMalformed(t *testing.T) {
	raw := "Sorry, I cannot help with that."

	_, _, err := Normalize(raw)

	var extractionErr *tender.ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if extractionErr.Raw != raw {
		t.Fatalf("expected raw text to be kept for diagnostics, got %q", extractionErr.Raw)
	}
}
