package models

import (
	"errors"
	"regexp"
	"unicode/utf8"
)

const (
	MaxUsernameLen = 150
	MaxEmailLen    = 254
	MaxNameLen     = 256
	MaxSlugLen     = 50

	// ReservedUsername collides with the /users/me route.
	ReservedUsername = "me"
)

var (
	usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

var (
	ErrUsernameEmpty    = errors.New("username is required")
	ErrUsernameTooLong  = errors.New("username must be at most 150 characters")
	ErrUsernameCharset  = errors.New("username may contain only letters, digits and @/./+/-/_")
	ErrUsernameReserved = errors.New(`username "me" is reserved`)
)

func ValidateUsername(username string) error {
	switch {
	case username == "":
		return ErrUsernameEmpty
	case utf8.RuneCountInString(username) > MaxUsernameLen:
		return ErrUsernameTooLong
	case !usernamePattern.MatchString(username):
		return ErrUsernameCharset
	case username == ReservedUsername:
		return ErrUsernameReserved
	}
	return nil
}

func ValidSlug(slug string) bool {
	return slug != "" && len(slug) <= MaxSlugLen && slugPattern.MatchString(slug)
}
