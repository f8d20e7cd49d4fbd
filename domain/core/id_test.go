package core

import (
	"testing"
	"time"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 1000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("job-1").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		input    string
		expected ID
		hasError bool
	}{
		{"job-1", ID("job-1"), false},
		{"  job-2 ", ID("job-2"), false},
		{"", "", true},
		{"   ", "", true},
		{"..", "", true},
		{".", "", true},
		{"a/b", "", true},
		{`a\b`, "", true},
		{"../../etc", "", true},
	}

	for _, test := range tests {
		result, err := ParseID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
		if test.hasError && err != nil && !IsValidationError(err) {
			t.Errorf("Expected a validation error for input '%s', got %v", test.input, err)
		}
	}
}

func TestFromMillis(t *testing.T) {
	ts := FromMillis(1577934245123)
	want := time.Date(2020, 1, 2, 3, 4, 5, 123000000, time.UTC)
	if !ts.Time().Equal(want) {
		t.Errorf("Expected %v, got %v", want, ts.Time().UTC())
	}
}
