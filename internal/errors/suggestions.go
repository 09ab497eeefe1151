package errors

import (
	"fmt"
	"strings"
)

// ErrorSuggestion represents a suggestion for fixing an error
type ErrorSuggestion struct {
	Title       string
	Description string
	Command     string
	Example     string
}

// ServerStartError generates suggestions for server startup failures
func ServerStartError(err error, host string, port int) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{}

	errStr := err.Error()

	if strings.Contains(errStr, "address already in use") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Port already in use",
			Description: fmt.Sprintf("Port %d is already being used by another process", port),
			Command:     fmt.Sprintf("lsof -i :%d", port),
		})

		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Use a different port",
			Description: "Start the server on a different port",
			Command:     fmt.Sprintf("marklive serve FILE --port %d", port+1),
		})
	}

	if strings.Contains(errStr, "cannot assign requested address") || strings.Contains(errStr, "no such host") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Host is not a local address",
			Description: fmt.Sprintf("%q does not belong to any interface on this machine", host),
			Command:     "marklive serve FILE --host 127.0.0.1",
		})
	}

	if strings.Contains(errStr, "permission denied") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Permission denied",
			Description: "You don't have permission to bind to this port",
		})

		if port < 1024 {
			suggestions = append(suggestions, ErrorSuggestion{
				Title:       "Use unprivileged port",
				Description: "Ports below 1024 require root privileges",
				Command:     "marklive serve FILE --port 3030",
			})
		}
	}

	return suggestions
}

// ConfigurationError generates suggestions for configuration issues
func ConfigurationError(configError string, configPath string) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{
		{
			Title:       "Check configuration file",
			Description: "Verify your .marklive.yml file exists and has valid syntax",
			Command:     "cat " + configPath,
		},
		{
			Title:       "Inspect the effective configuration",
			Description: "Print the configuration resolved from file, env vars and defaults",
			Command:     "marklive config show",
		},
	}

	if strings.Contains(configError, "yaml") || strings.Contains(configError, "unmarshal") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Fix YAML syntax",
			Description: "There's a syntax error in your YAML configuration",
			Example:     "Use proper indentation and avoid tabs",
		})
	}

	if strings.Contains(configError, "duration") || strings.Contains(configError, "interval") {
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Use Go duration syntax",
			Description: "Durations are written with a unit suffix",
			Example:     "watch:\n  poll_interval: 500ms",
		})
	}

	return suggestions
}

// SourceError generates suggestions for an unreadable initial document
func SourceError(err error, path string) []ErrorSuggestion {
	suggestions := []ErrorSuggestion{}

	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "no such file"):
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "File not found",
			Description: fmt.Sprintf("%s does not exist", path),
			Command:     "ls -la " + path,
		})
	case strings.Contains(errStr, "permission denied"):
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "File not readable",
			Description: "The current user cannot read the document",
			Command:     "chmod u+r " + path,
		})
	case strings.Contains(errStr, "is a directory"):
		suggestions = append(suggestions, ErrorSuggestion{
			Title:       "Path is a directory",
			Description: "marklive previews a single Markdown file",
			Example:     "marklive serve README.md",
		})
	}

	suggestions = append(suggestions, ErrorSuggestion{
		Title:       "Preview the clipboard or stdin instead",
		Description: "Ephemeral sources are rendered once and not watched",
		Example:     "marklive serve --clipboard\ncat notes.md | marklive serve",
	})

	return suggestions
}

// FormatSuggestions formats suggestions into a user-friendly string
func FormatSuggestions(title string, suggestions []ErrorSuggestion) string {
	if len(suggestions) == 0 {
		return title
	}

	var output strings.Builder
	output.WriteString(title + "\n\n")
	output.WriteString("Suggestions:\n")

	for i, suggestion := range suggestions {
		output.WriteString(fmt.Sprintf("  %d. %s\n", i+1, suggestion.Title))
		if suggestion.Description != "" {
			output.WriteString(fmt.Sprintf("     %s\n", suggestion.Description))
		}
		if suggestion.Command != "" {
			output.WriteString(fmt.Sprintf("     Run: %s\n", suggestion.Command))
		}
		if suggestion.Example != "" {
			output.WriteString(fmt.Sprintf("     Example: %s\n", suggestion.Example))
		}
		output.WriteString("\n")
	}

	return output.String()
}

// EnhancedError wraps an error with suggestions
type EnhancedError struct {
	OriginalError error
	Title         string
	Suggestions   []ErrorSuggestion
}

// Error implements the error interface
func (e *EnhancedError) Error() string {
	if e.OriginalError == nil {
		return FormatSuggestions(e.Title, e.Suggestions)
	}
	return FormatSuggestions(fmt.Sprintf("%s: %v", e.Title, e.OriginalError), e.Suggestions)
}

// Unwrap returns the original error
func (e *EnhancedError) Unwrap() error {
	return e.OriginalError
}

// NewEnhancedError creates a new enhanced error with suggestions
func NewEnhancedError(title string, originalError error, suggestions []ErrorSuggestion) *EnhancedError {
	return &EnhancedError{
		OriginalError: originalError,
		Title:         title,
		Suggestions:   suggestions,
	}
}
