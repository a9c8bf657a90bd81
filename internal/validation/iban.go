// Package validation содержит функции валидации входных данных.
package validation

import "strings"

// NormalizeIBAN убирает пробелы и приводит IBAN к верхнему регистру.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.Join(strings.Fields(iban), ""))
}

// IsValidIBAN проверяет формат и контрольную сумму IBAN по модулю 97 (ISO 13616).
func IsValidIBAN(iban string) bool {
	s := NormalizeIBAN(iban)
	if len(s) < 15 || len(s) > 34 {
		return false
	}

	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case i < 2:
			if ch < 'A' || ch > 'Z' {
				return false
			}
		case i < 4:
			if ch < '0' || ch > '9' {
				return false
			}
		default:
			if (ch < '0' || ch > '9') && (ch < 'A' || ch > 'Z') {
				return false
			}
		}
	}

	rearranged := s[4:] + s[:4]

	rem := 0
	for i := 0; i < len(rearranged); i++ {
		ch := rearranged[i]
		if ch >= 'A' && ch <= 'Z' {
			v := int(ch-'A') + 10
			rem = (rem*100 + v) % 97
			continue
		}
		rem = (rem*10 + int(ch-'0')) % 97
	}

	return rem == 1
}
