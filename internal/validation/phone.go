package validation

import (
	"regexp"
	"strings"
)

// Номер в формате +244 9XX XXX XXX, 09XXXXXXXX или 9XXXXXXXX.
var phonePattern = regexp.MustCompile(`^(?:\+244|0)?(9\d{8})$`)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// NormalizePhone приводит номер телефона к каноническому виду из девяти цифр.
func NormalizePhone(raw string) (string, bool) {
	cleaned := phoneSeparators.Replace(strings.TrimSpace(raw))

	m := phonePattern.FindStringSubmatch(cleaned)
	if m == nil {
		return "", false
	}

	return m[1], true
}

// MaskPhone скрывает середину номера: 923***789.
func MaskPhone(phone string) string {
	if len(phone) < 7 {
		return phone
	}
	return phone[:3] + strings.Repeat("*", len(phone)-6) + phone[len(phone)-3:]
}
