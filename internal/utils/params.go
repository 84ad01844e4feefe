package utils

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetIDParam parses the named path parameter as a database id.
func GetIDParam(ctx *gin.Context, name string) (uint, error) {
	raw := ctx.Param(name)

	if raw == "" {
		return 0, errors.New("ID not found")
	}

	id, err := strconv.ParseUint(raw, 10, 32)

	if err != nil || id == 0 {
		return 0, errors.New("Invalid ID")
	}

	return uint(id), nil
}

// GetEventID is GetIDParam for the ":id" segment of event routes.
func GetEventID(ctx *gin.Context) (uint, error) {
	id, err := GetIDParam(ctx, "id")
	if err != nil {
		return 0, errors.New("Invalid event ID")
	}
	return id, nil
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateWebhookURL checks that input is an absolute http(s) URL with a host.
func ValidateWebhookURL(input string) (string, error) {
	trimmed := strings.TrimSpace(input)

	if trimmed == "" {
		return "", nil
	}

	parsedURL, err := url.Parse(trimmed)
	if err != nil {
		return "", errors.New("invalid URL format")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", errors.New("webhook URL must use http or https")
	}

	if parsedURL.Hostname() == "" {
		return "", errors.New("no hostname found in URL")
	}

	return trimmed, nil
}
