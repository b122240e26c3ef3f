// Package device summarizes the client user agent for login audit logging.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Info is a compact client description attached to login log entries.
type Info struct {
	Browser  string
	OS       string
	Platform string
}

// Describe parses a User-Agent header into a loggable summary. Unknown or
// empty agents come back as "unknown" rather than failing the login.
func Describe(userAgentString string) Info {
	info := Info{Browser: "unknown", OS: "unknown", Platform: "desktop"}
	if userAgentString == "" {
		return info
	}

	ua := useragent.New(userAgentString)

	browser, version := ua.Browser()
	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser != "" {
		info.Browser = browser
		if parts := strings.Split(version, "."); len(parts) > 0 && parts[0] != "" {
			info.Browser = browser + "/" + parts[0]
		}
	}

	if os := strings.ToLower(strings.TrimSpace(ua.OS())); os != "" {
		info.OS = os
	}
	if ua.Mobile() {
		info.Platform = "mobile"
	} else if ua.Bot() {
		info.Platform = "bot"
	}
	return info
}

// String renders the summary as "browser os platform".
func (i Info) String() string {
	return i.Browser + " " + i.OS + " " + i.Platform
}
