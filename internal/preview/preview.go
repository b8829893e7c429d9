// Package preview recognizes operator preview and demo credentials.
//
// Recognition is compiled out unless the binary is built with the "preview"
// build tag; no environment variable or runtime setting can turn it on.
package preview

import "strings"

// Credential prefixes that mark a sentinel, non-exchanged session.
const (
	PreviewPrefix = "preview_"
	DemoPrefix    = "demo_"
)

// HasSentinelShape reports whether token looks like a preview or demo credential,
// regardless of whether such credentials are honored by this build.
func HasSentinelShape(token string) bool {
	return strings.HasPrefix(token, PreviewPrefix) || strings.HasPrefix(token, DemoPrefix)
}

// IsCredential reports whether token is a preview or demo credential this build honors.
func IsCredential(token string) bool {
	return Enabled && HasSentinelShape(token)
}
