package utils

import (
	"slices"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestAddError(t *testing.T) {
	errs := fiber.Map{}

	errs = AddError(errs, "location", "Enter the location of the incident.")
	errs = AddError(errs, "location", "The location is too vague.")
	errs = AddError(errs, "report_type", "Select a report type.")

	if len(errs) != 2 {
		t.Errorf("Got %d keys, expected 2", len(errs))
	}

	if msgs := errs["location"].([]string); len(msgs) != 2 {
		t.Errorf("Got %d messages for location, expected 2", len(msgs))
	}
}

func TestToStringPtr(t *testing.T) {
	if got := ToStringPtr("   "); got != nil {
		t.Errorf("A blank string must map to nil, got %q", *got)
	}

	if got := ToStringPtr("  wore a red jacket  "); got == nil || *got != "wore a red jacket" {
		t.Errorf("Unexpected pointer value: %v", got)
	}
}

func TestRandomString(t *testing.T) {
	a, err := RandomString(12)
	if err != nil {
		t.Fatalf("Could not generate random string: %v", err)
	}

	b, err := RandomString(12)
	if err != nil {
		t.Fatalf("Could not generate random string: %v", err)
	}

	if len(a) != 12 || len(b) != 12 {
		t.Errorf("Unexpected lengths: %d and %d", len(a), len(b))
	}

	if a == b {
		t.Error("Two random strings came out identical")
	}
}

func TestCleanStringList(t *testing.T) {
	got := CleanStringList([]string{" one ", "one", "", "  ", "two"})
	expected := []string{"one", "two"}

	if !slices.Equal(got, expected) {
		t.Errorf("Got %v, expected %v", got, expected)
	}
}

func TestSplitAny(t *testing.T) {
	got := SplitAny("a@example.test;b@example.test,c@example.test", SplitChars)

	if len(got) != 3 {
		t.Errorf("Got %d parts, expected 3: %v", len(got), got)
	}
}

func TestIsValidEmail(t *testing.T) {
	testCases := []struct {
		input string
		valid bool
	}{
		{input: "staff@example.test", valid: true},
		{input: "Staff <staff@example.test>", valid: true},
		{input: "not-an-email", valid: false},
		{input: "", valid: false},
	}

	for _, tc := range testCases {
		if got := IsValidEmail(tc.input); got != tc.valid {
			t.Errorf("IsValidEmail(%q) is %t, expected %t", tc.input, got, tc.valid)
		}
	}
}
