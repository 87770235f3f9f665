package accountd

import "regexp"

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+@[a-zA-Z0-9_-]+(\.[a-zA-Z0-9_-]+)+$`)
	phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func validPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// checkPasswordPolicy enforces the minimum length and requires at least one
// letter, one digit, and one special character.
func (e *Engine) checkPasswordPolicy(password string) error {
	if len(password) < e.config.Password.MinLength {
		return ErrPasswordPolicy
	}

	var hasLetter, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		default:
			hasSpecial = true
		}
	}

	if !hasLetter || !hasDigit || !hasSpecial {
		return ErrPasswordPolicy
	}

	return nil
}
