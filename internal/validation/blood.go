// Package validation provides input format checks shared by handlers and services.
package validation

import (
	"fmt"
	"regexp"
)

var bloodTypes = map[string]struct{}{
	"A+": {}, "A-": {},
	"B+": {}, "B-": {},
	"AB+": {}, "AB-": {},
	"O+": {}, "O-": {},
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateBloodType validates that the given value is one of the eight ABO/Rh groups.
func ValidateBloodType(bloodType string) error {
	if _, ok := bloodTypes[bloodType]; !ok {
		return fmt.Errorf("blood type must be one of A+, A-, B+, B-, AB+, AB-, O+, O-")
	}
	return nil
}

// ValidateEmail validates basic email address format.
func ValidateEmail(email string) error {
	if len(email) > 254 || !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword enforces the minimum password length for hospital and admin accounts.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}
