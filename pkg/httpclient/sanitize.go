package httpclient

import (
	"net/url"
	"strings"
)

// sensitiveParams contains query parameter names that should be redacted from logs.
// These are matched case-insensitively. Tuttle's only two sources of
// externally-supplied query strings are an http:// resource's own URL
// (the http resource kind's Exists/Signature checks) and the download
// processor's source URL, both of which are commonly presigned object-
// storage links, hence the signature/credential/expiry variants below.
var sensitiveParams = []string{
	"api_key",
	"apikey",
	"token",
	"password",
	"auth",
	"secret",
	"key",
	"credential",
	"signature",
	"x-amz-signature",
	"x-amz-credential",
	"x-amz-security-token",
	"expires",
	"googleaccessid",
}

// sanitizeURL removes sensitive query parameters from a resource or
// download URL before it reaches httpclient's request log line. This is
// the only place a workflow's http(s):// resource URLs are logged with
// their query strings intact otherwise.
func sanitizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}

	// Parse query parameters
	q := u.Query()

	// Check each query parameter against sensitive list (case-insensitive)
	for param := range q {
		if isSensitiveParam(param) {
			q.Set(param, "[REDACTED]")
		}
	}

	// Rebuild URL with sanitized query
	safe := *u
	safe.RawQuery = q.Encode()
	return safe.String()
}

// isSensitiveParam checks if a parameter name matches the sensitive list.
// Comparison is case-insensitive to catch variants like "API_KEY", "Api_Key", etc.
func isSensitiveParam(param string) bool {
	lower := strings.ToLower(param)
	for _, sensitive := range sensitiveParams {
		if strings.Contains(lower, sensitive) {
			return true
		}
	}
	return false
}
