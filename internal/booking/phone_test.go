package booking

import "testing"

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1234567890", true},
		{"+1-234-567-8900", true},
		{"(123) 456-7890", true},
		{" 555 123 4567 ", true},
		{"+441632960961", true},
		{"123456789012345", true},
		{"12345", false},
		{"abcdefghij", false},
		{"123-456", false},
		{"1234567890123456", false},
		{"++1234567890", false},
		{"123.456.7890", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidatePhone(tt.in); got != tt.want {
			t.Errorf("ValidatePhone(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
