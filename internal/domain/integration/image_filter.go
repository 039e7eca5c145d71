package integration

import (
	"net"
	"net/url"
	"strings"
)

// FilterImageURLs admits only URLs a remote store could actually fetch:
// absolute http or https, pointing at a public host. Browser-local
// schemes (blob:, data:), relative paths, loopback and unspecified
// hosts are dropped.
// Input order is preserved for the admitted URLs and a bad URL never
// fails the whole set.
func FilterImageURLs(urls []string) (accepted []string, dropped []string) {
	accepted = make([]string, 0, len(urls))
	dropped = make([]string, 0)

	for _, raw := range urls {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || !admissibleImageURL(trimmed) {
			dropped = append(dropped, raw)
			continue
		}
		accepted = append(accepted, trimmed)
	}

	return accepted, dropped
}

func admissibleImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return false
	}

	host := u.Hostname()
	if host == "" {
		return false
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return false
	}
	if ip := net.ParseIP(host); ip != nil && (ip.IsLoopback() || ip.IsUnspecified()) {
		return false
	}

	return true
}
