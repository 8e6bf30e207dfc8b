package validation

import "testing"

func TestNormalizeCell(t *testing.T) {
	cases := []struct {
		in   string
		want *string
	}{
		{"  jane@example.com  ", strPtr("jane@example.com")},
		{"", nil},
		{"   ", nil},
	}

	for _, tc := range cases {
		got := NormalizeCell(tc.in)
		if tc.want == nil {
			if got != nil {
				t.Errorf("NormalizeCell(%q) = %q, want nil", tc.in, *got)
			}
			continue
		}
		if got == nil || *got != *tc.want {
			t.Errorf("NormalizeCell(%q) = %v, want %q", tc.in, got, *tc.want)
		}
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"a@b.com", "jane.doe@sub.example.co", "x@y.io"}
	invalid := []string{"", "no-at-sign", "@b.com", "a@", "a@b"}

	for _, e := range valid {
		if !IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = false, want true", e)
		}
	}
	for _, e := range invalid {
		if IsValidEmail(e) {
			t.Errorf("IsValidEmail(%q) = true, want false", e)
		}
	}
}

func TestIsEmptyRecord(t *testing.T) {
	if !IsEmptyRecord([]string{"", "  ", ""}) {
		t.Error("expected all-blank record to be empty")
	}
	if IsEmptyRecord([]string{"", "a", ""}) {
		t.Error("expected record with one non-blank field to be non-empty")
	}
}

func strPtr(s string) *string { return &s }
