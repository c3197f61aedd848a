package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/anglerdiary/flownet/internal/api"
	"github.com/anglerdiary/flownet/internal/config"
)

// HandleError processes an error and returns a user-friendly message with suggestions
func HandleError(err error) string {
	if err == nil {
		return ""
	}

	var msg strings.Builder
	var netErr *api.NetworkError
	var envErr *config.UnknownEnvironmentError

	switch {
	case errors.Is(err, config.ErrNotConfigured):
		fmt.Fprintf(&msg, "Error: %s\n\n", err.Error())
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: flownet auth login --email you@example.com\n")
		msg.WriteString("  - Or export FLOWNET_TOKEN for one-off calls\n")

	case errors.As(err, &envErr):
		fmt.Fprintf(&msg, "Error: %s\n\n", envErr.Error())
		msg.WriteString("Suggestions:\n")
		msg.WriteString("  - Run: flownet env list\n")

	case errors.As(err, &netErr) && netErr.StatusCode != 0:
		fmt.Fprintf(&msg, "API error (HTTP %d): %s\n\n", netErr.StatusCode, api.ServerMessage(netErr.Body))
		msg.WriteString(suggestionsForStatusCode(netErr.StatusCode))
		if netErr.Meta != nil && netErr.Meta.RequestID != "" {
			fmt.Fprintf(&msg, "\nRequest ID: %s\n", netErr.Meta.RequestID)
		}

	case errors.As(err, &netErr):
		fmt.Fprintf(&msg, "Error: %s\n", netErr.Error())
		if hint := api.CodeOf(netErr).Suggestion(); hint != "" {
			fmt.Fprintf(&msg, "\nSuggestions:\n  - %s\n", hint)
		}
		if strings.Contains(err.Error(), "certificate") {
			msg.WriteString("  - Verify the server's TLS certificate\n")
		}

	default:
		fmt.Fprintf(&msg, "Error: %s\n", err.Error())
	}

	return msg.String()
}

func suggestionsForStatusCode(code int) string {
	var suggestions strings.Builder
	suggestions.WriteString("Suggestions:\n")

	switch {
	case code == 400:
		suggestions.WriteString("  - Check your request parameters\n")
		suggestions.WriteString("  - Use --log-level debug to see the full request\n")

	case code == 401:
		suggestions.WriteString("  - Your token may be invalid or expired\n")
		suggestions.WriteString("  - Run: flownet auth login\n")

	case code == 403:
		suggestions.WriteString("  - You don't have permission for this action\n")

	case code == 404:
		suggestions.WriteString("  - The resource doesn't exist\n")
		suggestions.WriteString("  - Check the path and ID are correct\n")

	case code == 422:
		suggestions.WriteString("  - Validation failed\n")
		suggestions.WriteString("  - Check your input values\n")

	case code == 429:
		suggestions.WriteString("  - Too many requests\n")
		suggestions.WriteString("  - Wait and retry in a few seconds\n")

	case code >= 500:
		suggestions.WriteString("  - Server error - not your fault\n")
		suggestions.WriteString("  - Wait and retry\n")

	default:
		suggestions.WriteString("  - Use --log-level debug for more details\n")
	}

	return suggestions.String()
}
