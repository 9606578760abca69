// Package uxerror translates raw errors into user-friendly messages with
// recovery hints for the TUI.
package uxerror

import (
	"errors"
	"fmt"
	"strings"

	"creator-chat/internal/adapter/tui/theme"
	"creator-chat/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "Connection Failed"
	Message string   // one-liner explanation
	Hints   []string // actionable recovery suggestions
	Raw     string   // original error text (for debug)
}

// Render formats the FriendlyError for display below the composer.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.SymbolBullet, h))
		}
	}
	return sb.String()
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

var patterns = []errorPattern{
	// Domain sentinel errors (checked first so errors.Is works through wrapping).
	{
		match:   is(domain.ErrRateLimit),
		produce: constantError("Slow Down", "Messages are being sent too quickly.", []string{"Wait a moment before sending again", "Raise backend.rate_limit in config"}),
	},
	{
		match:   is(domain.ErrCircuitOpen),
		produce: constantError("Backend Unavailable", "The chat backend failed repeatedly and requests are paused.", []string{"Wait for the backend to recover", "Check the backend status"}),
	},
	{
		match:   is(domain.ErrNotFound),
		produce: constantError("Conversation Not Found", "The backend does not know this chat.", []string{"Check the chat id passed with --chat", "Verify backend.base_url in config"}),
	},
	{
		match: is(domain.ErrInvalidInput),
		produce: func(err error) FriendlyError {
			return FriendlyError{
				Title:   "Message Rejected",
				Message: err.Error(),
				Hints:   []string{"Edit the message and try again"},
				Raw:     err.Error(),
			}
		},
	},

	// Network / connectivity patterns (string matching for external errors).
	{
		match:   containsAny("connection refused", "dial tcp", "no such host"),
		produce: constantError("Connection Failed", "Could not reach the chat backend.", []string{"Check your internet connection", "Verify backend.base_url in config"}),
	},
	{
		match:   containsAny("deadline exceeded", "timeout", "context deadline"),
		produce: constantError("Request Timed Out", "The backend took too long to respond.", []string{"Try again", "Increase backend.resp_timeout in config"}),
	},

	// Auth patterns.
	{
		match:   containsAny("401", "403", "unauthorized", "forbidden"),
		produce: constantError("Authentication Failed", "The access token was rejected.", []string{"Set CREATORCHAT_TOKEN", "Check that the token has not expired"}),
	},
	{
		match:   is(domain.ErrConnection),
		produce: constantError("Connection Failed", "The backend connection was lost.", []string{"Check your internet connection", "Try again"}),
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil"}
	}

	for _, p := range patterns {
		if p.match(err) {
			return p.produce(err)
		}
	}

	return FriendlyError{
		Title:   "Message Not Sent",
		Message: err.Error(),
		Hints:   []string{"Try again", "Run with --log-level debug for more details"},
		Raw:     err.Error(),
	}
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// containsAny returns a match func that checks if the error string contains
// any of the given substrings (case-insensitive).
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

// constantError returns a produce func that always returns the same FriendlyError.
func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{
			Title:   title,
			Message: message,
			Hints:   hints,
			Raw:     err.Error(),
		}
	}
}
