package sanitize

import (
	"html"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func strict() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// maxDecodePasses bounds how many layers of entity encoding are peeled off
// before markup is stripped.
const maxDecodePasses = 3

// Text strips all markup from s and returns plain text. Encoded markup such as
// &lt;b&gt; is decoded first so it is stripped too. The result is unescaped
// and templates escape it exactly once on output.
func Text(s string) string {
	for i := 0; i < maxDecodePasses; i++ {
		decoded := html.UnescapeString(s)
		if decoded == s {
			break
		}
		s = decoded
	}
	return strings.TrimSpace(html.UnescapeString(strict().Sanitize(s)))
}

// Form returns the sanitized value of each named field. Fields absent from the
// request map to "".
func Form(values url.Values, fields ...string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f] = Text(values.Get(f))
	}
	return out
}

// Raw returns trimmed values for fields that carry data rather than text, such
// as base64 payloads and uploaded JSON. These are parsed, never rendered.
func Raw(values url.Values, fields ...string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f] = strings.TrimSpace(values.Get(f))
	}
	return out
}
