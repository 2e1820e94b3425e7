package api

import (
	"net/url"
	"path"
	"strings"
)

// IsAbsolute reports whether link carries its own scheme or host.
func IsAbsolute(link string) bool {
	l := strings.ToLower(link)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") || strings.HasPrefix(l, "//")
}

// ResolveLink returns link unchanged when absolute, otherwise joins it to
// base with exactly one slash in between.
func ResolveLink(base, link string) string {
	if IsAbsolute(link) {
		return link
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(link, "/")
}

func nameFromLink(link string) string {
	if link == "" {
		return ""
	}
	p := link
	if u, err := url.Parse(link); err == nil && u.Path != "" {
		p = u.Path
	}
	name := path.Base(p)
	if name == "/" || name == "." {
		return ""
	}
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}
