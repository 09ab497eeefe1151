// Package browser opens the preview in the user's browser and finds the
// address other machines on the network can use to reach it.
package browser

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/conneroisu/marklive/internal/errors"
	"github.com/conneroisu/marklive/internal/validation"
)

// command builds the opener for a platform. Swapped in tests.
var command = func(goos string, wsl bool, url string) (*exec.Cmd, error) {
	switch {
	case goos == "linux" && wsl:
		return exec.Command("powershell.exe", "-NoProfile", "-Command", "Start-Process", url), nil
	case goos == "linux", goos == "freebsd", goos == "openbsd", goos == "netbsd":
		return exec.Command("xdg-open", url), nil
	case goos == "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	case goos == "darwin":
		return exec.Command("open", url), nil
	default:
		return nil, fmt.Errorf("unsupported platform %s", goos)
	}
}

var isWSL = func() bool {
	if _, ok := os.LookupEnv("WSL_DISTRO_NAME"); ok {
		return true
	}
	release, err := os.ReadFile("/proc/sys/kernel/osrelease")
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(release)), "microsoft")
}

// Open launches the system browser on url without waiting for it.
func Open(url string) error {
	// Validate URL for security before passing to system commands
	if err := validation.ValidateURL(url); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidURL, err.Error())
	}

	cmd, err := command(runtime.GOOS, runtime.GOOS == "linux" && isWSL(), url)
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting browser: %w", err)
	}

	// Reap the opener so it does not linger as a zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}

// LANAddress returns the first non-loopback IPv4 address of this machine.
func LANAddress() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("listing interface addresses: %w", err)
	}
	return firstLANAddress(addrs)
}

func firstLANAddress(addrs []net.Addr) (string, error) {
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() || ipNet.IP.IsLinkLocalUnicast() {
			continue
		}
		if ip := ipNet.IP.To4(); ip != nil {
			return ip.String(), nil
		}
	}
	return "", fmt.Errorf("no network address found")
}

// IsWildcard reports whether host binds every interface.
func IsWildcard(host string) bool {
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		return true
	default:
		return false
	}
}
