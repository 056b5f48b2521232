// Package validation checks login and registration input against fixed
// patterns. The functions are pure: same input, same output, no I/O.
//
// Each result field holds one message, or "" when that input passed.
package validation

import (
	"regexp"
	"strings"
)

const (
	MsgInvalidUserID   = "Invalid user id"
	MsgInvalidPassword = "Password must contain at least 8 characters, including letters and numbers"
	MsgInvalidNickname = "Nickname must contain at least 3 alphanumeric characters without spaces"
)

var (
	userIDPattern   = regexp.MustCompile(`^[a-zA-Z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,6}$`)
	passwordPattern = regexp.MustCompile(`^[A-Za-z0-9]{8,}$`)
	nicknamePattern = regexp.MustCompile(`^[a-zA-Z0-9]{3,}$`)
)

// LoginErrors holds per-field messages for a login attempt.
type LoginErrors struct {
	UserID   string
	Password string
}

// Valid reports whether both fields passed.
func (e LoginErrors) Valid() bool {
	return e.UserID == "" && e.Password == ""
}

// RegisterErrors holds per-field messages for a registration attempt.
type RegisterErrors struct {
	UserID   string
	Password string
	Nickname string
}

// Valid reports whether all three fields passed.
func (e RegisterErrors) Valid() bool {
	return e.UserID == "" && e.Password == "" && e.Nickname == ""
}

func ValidateLogin(userID, password string) LoginErrors {
	var e LoginErrors
	if !ValidUserID(userID) {
		e.UserID = MsgInvalidUserID
	}
	if !ValidPassword(password) {
		e.Password = MsgInvalidPassword
	}
	return e
}

func ValidateRegister(userID, password, nickname string) RegisterErrors {
	var e RegisterErrors
	if !ValidUserID(userID) {
		e.UserID = MsgInvalidUserID
	}
	if !ValidPassword(password) {
		e.Password = MsgInvalidPassword
	}
	if !ValidNickname(nickname) {
		e.Nickname = MsgInvalidNickname
	}
	return e
}

func ValidUserID(s string) bool {
	return userIDPattern.MatchString(s)
}

// ValidPassword accepts 8 or more ASCII letters and digits with at least one
// of each. RE2 has no lookahead, so the two "at least one" rules are checked
// separately from the charset/length pattern.
func ValidPassword(s string) bool {
	return passwordPattern.MatchString(s) &&
		strings.ContainsAny(s, "0123456789") &&
		strings.IndexFunc(s, isASCIILetter) >= 0
}

func ValidNickname(s string) bool {
	return nicknamePattern.MatchString(s)
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
