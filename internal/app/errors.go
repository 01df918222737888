package app

import (
	"fmt"
	"net/http"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func validationError(message string) *DomainError {
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", message, nil)
}

var (
	errTitleRequired       = validationError("Please enter a title")
	errPromptRequired      = validationError("Please enter a prompt")
	errInstructionRequired = validationError("Please describe the edit")
	errIDRequired          = validationError("id is required")
	errAIUnavailable       = domainError(http.StatusBadGateway, "AI_UNAVAILABLE", "AI service unavailable, try again", nil)
	errAINotConfigured     = domainError(http.StatusServiceUnavailable, "AI_NOT_CONFIGURED", "AI service is not configured", nil)
	errHistoryDisabled     = domainError(http.StatusNotFound, "NOT_FOUND", "History is not enabled", nil)
	errStorageUnavailable  = domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Export storage is not configured", nil)
)
