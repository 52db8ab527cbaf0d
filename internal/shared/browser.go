package shared

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

var getRuntime = func() string { return runtime.GOOS }

// BrowserEnv names a program used instead of the platform default to open the authorization page.
const BrowserEnv = "BROWSER"

// OpenBrowser starts the user's browser on url without waiting for it to exit.
//
// $BROWSER wins over the platform opener (open, xdg-open or rundll32).
func OpenBrowser(url string) error {
	cmd, err := browserCommand(getRuntime(), os.Getenv(BrowserEnv), url)
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}

	go cmd.Wait()
	return nil
}

func browserCommand(goos, override, url string) (*exec.Cmd, error) {
	if fields := strings.Fields(override); len(fields) > 0 {
		return exec.Command(fields[0], append(fields[1:], url)...), nil
	}

	switch goos {
	case "darwin":
		return exec.Command("open", url), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return exec.Command("xdg-open", url), nil
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
}
