package utils

import (
	"net"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
)

// AbsoluteURL resolves path against the scheme and host the request arrived on.
// Paths that are already absolute URLs are returned unchanged.
func AbsoluteURL(r *http.Request, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return scheme + "://" + r.Host + path
}

// RemoteIP returns the caller's IP from RemoteAddr, or 127.0.0.1 when it cannot be parsed
func RemoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return "127.0.0.1"
	}
	return host
}

// ToKurus converts a lira amount into integer kuruş, rounding half away from zero
func ToKurus(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
