package validation

import "testing"

func TestIsValidIBAN(t *testing.T) {
	tests := []struct {
		name  string
		iban  string
		valid bool
	}{
		{
			name:  "valid with spaces",
			iban:  "GB82 WEST 1234 5698 7654 32",
			valid: true,
		},
		{
			name:  "valid lower case",
			iban:  "de89370400440532013000",
			valid: true,
		},
		{
			name:  "invalid checksum",
			iban:  "GB82 WEST 1234 5698 7654 33",
			valid: false,
		},
		{
			name:  "too short",
			iban:  "GB82WEST",
			valid: false,
		},
		{
			name:  "country code is not letters",
			iban:  "1282WEST12345698765432",
			valid: false,
		},
		{
			name:  "punctuation",
			iban:  "GB82-WEST-1234-5698-7654-32",
			valid: false,
		},
		{
			name:  "empty string",
			iban:  "",
			valid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidIBAN(tt.iban)
			if got != tt.valid {
				t.Fatalf("IsValidIBAN(%q) = %v, want %v", tt.iban, got, tt.valid)
			}
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{name: "bare nine digits", raw: "923456789", want: "923456789", valid: true},
		{name: "country prefix with spaces", raw: "+244 923 456 789", want: "923456789", valid: true},
		{name: "leading zero", raw: "0923456789", want: "923456789", valid: true},
		{name: "dashes and brackets", raw: "(92) 345-67-89", want: "923456789", valid: true},
		{name: "does not start with 9", raw: "823456789", valid: false},
		{name: "too long", raw: "+2449234567890", valid: false},
		{name: "foreign prefix", raw: "+351923456789", valid: false},
		{name: "letters", raw: "92345678a", valid: false},
		{name: "empty", raw: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePhone(tt.raw)
			if ok != tt.valid {
				t.Fatalf("NormalizePhone(%q) ok = %v, want %v", tt.raw, ok, tt.valid)
			}
			if got != tt.want {
				t.Fatalf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMaskPhone(t *testing.T) {
	if got := MaskPhone("923456789"); got != "923***789" {
		t.Fatalf("MaskPhone = %q", got)
	}
	if got := MaskPhone("123"); got != "123" {
		t.Fatalf("MaskPhone short = %q", got)
	}
}
