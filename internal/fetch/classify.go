package fetch

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/xml"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/mmcdole/gofeed"
)

// Category is the closed set of user-meaningful fetch failure categories.
type Category string

const (
	CategoryHostUnreachable Category = "host_unreachable"
	CategoryTLSFailure      Category = "tls_failure"
	CategoryTimeout         Category = "timeout"
	CategoryAccessForbidden Category = "access_forbidden"
	CategoryNotFound        Category = "not_found"
	CategoryServerError     Category = "server_error"
	CategoryRateLimited     Category = "rate_limited"
	CategoryMalformedFeed   Category = "malformed_feed"
	CategoryUnknown         Category = "unknown"
)

// categoryMessages holds the fixed, user-actionable message per category.
// The Unknown message is composed in Error so the raw cause is retained.
var categoryMessages = map[Category]string{
	CategoryHostUnreachable: "The feed host could not be reached. Check the URL and your network connection.",
	CategoryTLSFailure:      "The site's TLS certificate could not be verified. Check the site's safety.",
	CategoryTimeout:         "The connection timed out. Try again later.",
	CategoryAccessForbidden: "Access to this feed was denied.",
	CategoryNotFound:        "The feed was not found. Check that the URL is correct.",
	CategoryServerError:     "The feed server reported an error. Try again later.",
	CategoryRateLimited:     "The feed host is rate limiting requests. Try again later.",
	CategoryMalformedFeed:   "The document is not a valid RSS or Atom feed.",
}

// FetchError is a raw fetch or parse failure mapped to exactly one category.
type FetchError struct {
	Category Category
	Cause    error
}

func (e *FetchError) Error() string {
	if msg, ok := categoryMessages[e.Category]; ok {
		return msg
	}
	return fmt.Sprintf("Failed to fetch the feed: %v", e.Cause)
}

func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Classify maps a raw failure to a FetchError. The mapping is total: every
// error classifies to exactly one category, defaulting to Unknown. Structured
// causes (HTTP status, socket error, parse error kind) are inspected first;
// the message-substring pass only covers unstructured lower-layer errors.
func Classify(err error) *FetchError {
	return &FetchError{Category: classifyCategory(err), Cause: err}
}

func classifyCategory(err error) Category {
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		return classifyStatus(httpErr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CategoryHostUnreachable
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) {
		return CategoryHostUnreachable
	}

	var (
		certInvalid   x509.CertificateInvalidError
		unknownAuth   x509.UnknownAuthorityError
		hostnameErr   x509.HostnameError
		recordHdrErr  tls.RecordHeaderError
		certVerifyErr *tls.CertificateVerificationError
	)
	if errors.As(err, &certInvalid) || errors.As(err, &unknownAuth) ||
		errors.As(err, &hostnameErr) || errors.As(err, &recordHdrErr) ||
		errors.As(err, &certVerifyErr) {
		return CategoryTLSFailure
	}

	if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
		return CategoryMalformedFeed
	}
	var xmlErr *xml.SyntaxError
	if errors.As(err, &xmlErr) {
		return CategoryMalformedFeed
	}

	return classifyMessage(err)
}

func classifyStatus(status int) Category {
	switch {
	case status == 401 || status == 403:
		return CategoryAccessForbidden
	case status == 404:
		return CategoryNotFound
	case status == 429:
		return CategoryRateLimited
	case status >= 500:
		return CategoryServerError
	default:
		return CategoryUnknown
	}
}

// classifyMessage is the substring fallback for error shapes that carry no
// structure at all.
func classifyMessage(err error) Category {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such host") || strings.Contains(msg, "connection refused"):
		return CategoryHostUnreachable
	case strings.Contains(msg, "certificate") || strings.Contains(msg, "tls") || strings.Contains(msg, "x509"):
		return CategoryTLSFailure
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return CategoryTimeout
	case strings.Contains(msg, "403") || strings.Contains(msg, "forbidden"):
		return CategoryAccessForbidden
	case strings.Contains(msg, "404") || strings.Contains(msg, "not found"):
		return CategoryNotFound
	case strings.Contains(msg, "429") || strings.Contains(msg, "too many requests"):
		return CategoryRateLimited
	case strings.Contains(msg, "parse") || strings.Contains(msg, "xml") || strings.Contains(msg, "feed type"):
		return CategoryMalformedFeed
	default:
		return CategoryUnknown
	}
}
