package utils

import "strings"

// ValidatePhoneNumber validates an E.164-style phone number
func ValidatePhoneNumber(phoneNumber string) bool {
	if len(phoneNumber) < 8 || len(phoneNumber) > 16 {
		return false
	}
	if !strings.HasPrefix(phoneNumber, "+") {
		return false
	}
	for _, r := range phoneNumber[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// NormalizePhoneNumber strips spaces and dashes so equal numbers compare equal
func NormalizePhoneNumber(phoneNumber string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
	return replacer.Replace(phoneNumber)
}
