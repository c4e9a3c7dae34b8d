package validation

import (
	"encoding/json"
	"testing"
)

func TestValidEmail(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"a@b.com", true},
		{"Mixed.Case@Domain.ORG", true},
		{"  spaced@example.com ", true},
		{"", false},
		{"plainaddress", false},
		{"@missing-local.org", false},
		{"two@@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ValidEmail(tt.input); got != tt.want {
				t.Errorf("ValidEmail(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1234567890", true},
		{"+1 (555) 123-4567", true},
		{"(555)123-4567", true},
		{"555.123.4567", true},
		{"+380501234567", true},
		{"1234567", true},
		{"123456", false},
		{"1234567890123456", false},
		{"12+34567", false},
		{"phone", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ValidPhone(tt.input); got != tt.want {
				t.Errorf("ValidPhone(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestToDetails(t *testing.T) {
	type req struct {
		Email string `json:"email" validate:"required,email"`
		Phone string `json:"phone" validate:"omitempty,phone"`
	}
	err := validate().Struct(req{Email: "nope", Phone: "x"})
	details := ToDetails(err)
	if details["email"] != "must be a valid email" {
		t.Errorf("email detail = %q", details["email"])
	}
	if details["phone"] != "must be a valid phone number" {
		t.Errorf("phone detail = %q", details["phone"])
	}

	var v map[string]any
	jerr := json.Unmarshal([]byte("{"), &v)
	if got := ToDetails(jerr); got["payload"] != "invalid json" {
		t.Errorf("syntax error detail = %v", got)
	}
	if ToDetails(nil) != nil {
		t.Error("nil error should produce nil details")
	}
}
