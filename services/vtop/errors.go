package vtop

import (
	"errors"
	"vtop-backend/services/session"
)

var (
	ErrSessionNotFound      = session.ErrSessionNotFound
	ErrCsrfExtractionFailed = errors.New("failed to extract csrf token")
	ErrCaptchaUnavailable   = errors.New("failed to retrieve image captcha")
	ErrExtractionFailed     = errors.New("failed to extract data from page")
	ErrPersistence          = errors.New("failed to persist student record")
	ErrRecordNotFound       = errors.New("student record not found")
)
