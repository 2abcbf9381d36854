// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"unicode"
)

const (
	minPhoneDigits = 8
	maxPhoneDigits = 15
)

// CleanPhone убирает из номера пробелы, дефисы и скобки.
func CleanPhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(strings.TrimSpace(phone))
}

// IsValidPhone проверяет очищенный номер телефона клиента: необязательный "+" и 8–15 цифр.
func IsValidPhone(phone string) bool {
	digits := strings.TrimPrefix(phone, "+")
	if len(digits) < minPhoneDigits || len(digits) > maxPhoneDigits {
		return false
	}

	for _, ch := range digits {
		if !unicode.IsDigit(ch) {
			return false
		}
	}

	return true
}

// WhatsAppPhone приводит номер к международному виду. Номера без кода страны считаются индонезийскими.
func WhatsAppPhone(phone string) string {
	phone = CleanPhone(phone)
	switch {
	case phone == "", strings.HasPrefix(phone, "+"):
		return phone
	case strings.HasPrefix(phone, "0"):
		return "+62" + phone[1:]
	default:
		return "+" + phone
	}
}
