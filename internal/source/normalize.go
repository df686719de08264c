package source

import (
	"net/url"
	"strings"
)

// trackingParams are query parameters that identify campaigns, not
// content. Stripping them lets the same story from two providers compare
// equal by URL.
var trackingParams = map[string]bool{
	"gclid":  true,
	"fbclid": true,
	"mc_cid": true,
	"mc_eid": true,
	"ref":    true,
	"source": true,
	"cmpid":  true,
	"ito":    true,
}

// NormalizeURL canonicalizes an article URL for comparison: lower-cased
// scheme and host, default ports and fragments dropped, tracking
// parameters removed, no trailing slash. Unparseable input is returned
// trimmed so dedup can still group exact duplicates.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(raw, "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	q := u.Query()
	for key := range q {
		if trackingParams[key] || strings.HasPrefix(strings.ToLower(key), "utm") {
			q.Del(key)
		}
	}
	u.RawQuery = q.Encode()

	u.Path = strings.TrimSuffix(u.Path, "/")

	return u.String()
}
