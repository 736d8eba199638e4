package domain

import "errors"

var (
	ErrEmptyMessage   = errors.New("message content or image is required")
	ErrMissingCompany = errors.New("company id is required")
	ErrMissingAuthor  = errors.New("author user id is required")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrUserNotFound   = errors.New("user not found")
)
