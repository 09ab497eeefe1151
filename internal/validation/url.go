// Package validation guards values that end up in system commands or
// listener addresses: the URL handed to the browser opener and the host the
// server binds to.
package validation

import (
	"fmt"
	"net/url"
	"strings"
)

// shellMeta are characters that could enable command injection when a value
// reaches exec.Command through a shell-like opener (cmd /C start, powershell).
var shellMeta = []string{";", "&", "|", "`", "$", "(", ")", "<", ">", "\"", "'", "\\", "\n", "\r"}

// ValidateURL validates URLs for browser auto-open functionality
// Prevents command injection via URL parameters
func ValidateURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	// Only allow http/https schemes to prevent protocol handlers
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (only http/https allowed)", parsed.Scheme)
	}

	for _, char := range shellMeta {
		if strings.Contains(rawURL, char) {
			return fmt.Errorf("URL contains dangerous character: %s", char)
		}
	}

	if strings.Contains(rawURL, " ") {
		return fmt.Errorf("URL contains spaces (possible command injection attempt)")
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must have a valid hostname")
	}

	return nil
}

// ValidateHost checks a bind host. Empty means all interfaces.
func ValidateHost(host string) error {
	if host == "" {
		return nil
	}

	for _, char := range shellMeta {
		if strings.Contains(host, char) {
			return fmt.Errorf("host contains dangerous character: %s", char)
		}
	}

	if strings.ContainsAny(host, " /") {
		return fmt.Errorf("host %q must be a bare hostname or IP address", host)
	}

	return nil
}
