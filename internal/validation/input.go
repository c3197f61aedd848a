package validation

import (
	"fmt"
	"net/mail"
)

// Input size limits.
const (
	MaxJSONPayload = 1 << 20  // 1MB for raw JSON bodies
	MaxUploadSize  = 20 << 20 // 20MB for photo uploads
	MaxURLLength   = 2048
)

// ValidateJSONPayload validates raw JSON body size.
func ValidateJSONPayload(payload string) error {
	if payload == "" {
		return fmt.Errorf("JSON payload cannot be empty")
	}
	if len(payload) > MaxJSONPayload {
		return fmt.Errorf("JSON payload exceeds maximum size of %d bytes (got %d)", MaxJSONPayload, len(payload))
	}
	return nil
}

// ValidateUploadSize rejects files larger than MaxUploadSize.
func ValidateUploadSize(name string, size int64) error {
	if size > MaxUploadSize {
		return fmt.Errorf("%s exceeds maximum upload size of %d bytes (got %d)", name, MaxUploadSize, size)
	}
	return nil
}

// ValidateEmailFormat validates the format of an email address.
func ValidateEmailFormat(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	return nil
}
