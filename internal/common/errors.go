// Package common defines shared sentinel errors used across the identity
// service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound            = errors.New("not found")
	ErrorDuplicateEmail      = errors.New("email already registered")
	ErrorDuplicateExternalID = errors.New("external id already registered")

	// Bearer token errors.
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrWrongTokenKind = errors.New("wrong token kind")
)
