package apierrors

import (
	"fmt"
	"strings"
)

// pubproxy reports usage errors as plain-text bodies, sometimes with
// misleading status codes, so the body is matched before the status class.
const (
	invalidKeyBody = "Invalid API. Get your API to make unlimited requests at http://pubproxy.com/#premium"
	rateLimitBody  = "We have to temporarily stop you. You're requesting proxies a little too " +
		"fast (2+ requests per second). Get your API to remove this limit at\nhttp://pubproxy.com/#premium"
	dailyLimitBody = "You reached the maximum 50 requests for today. Get your API to make " +
		"unlimited requests at http://pubproxy.com/#premium"
	noProxyBody = "No proxy"
)

// ClassifyResponse maps a non-decodable service response to an Error. It
// never returns nil: callers only reach it after JSON decoding has failed or
// the status is outside the success range.
func ClassifyResponse(status int, body string) *Error {
	switch strings.TrimSpace(body) {
	case invalidKeyBody:
		return NewServiceError("service rejected the API key", nil)
	case rateLimitBody:
		return NewRateLimitedError("service reports request pacing violation; another process may share this IP")
	case dailyLimitBody:
		return NewQuotaExceededError("service reports the daily request quota is exhausted")
	case noProxyBody:
		return NewServiceError("no proxies matched the requested filters", nil)
	}

	switch {
	case status >= 400 && status < 500:
		return NewServiceError(fmt.Sprintf("service rejected the request (%d)", status), nil)
	case status >= 500 && status < 600:
		return NewServiceError(fmt.Sprintf("service reported an internal error (%d)", status), nil)
	default:
		return NewServiceError(fmt.Sprintf("service returned an unexpected response (%d)", status), nil)
	}
}
