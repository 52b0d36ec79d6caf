package utils

import (
	"crypto/tls"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAbsoluteURL(t *testing.T) {
	req := httptest.NewRequest("POST", "http://satis.example/checkout/pay", nil)
	assert.Equal(t, "http://satis.example/payments/callback/paytr/", AbsoluteURL(req, "/payments/callback/paytr/"))
	assert.Equal(t, "http://satis.example/odeme", AbsoluteURL(req, "odeme"))
	assert.Equal(t, "https://pay.example/cb", AbsoluteURL(req, "https://pay.example/cb"))

	req.TLS = &tls.ConnectionState{}
	assert.Equal(t, "https://satis.example/x", AbsoluteURL(req, "/x"))

	req.TLS = nil
	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://satis.example/x", AbsoluteURL(req, "/x"))
}

func TestRemoteIP(t *testing.T) {
	req := httptest.NewRequest("POST", "/", nil)
	req.RemoteAddr = "85.105.1.2:53211"
	assert.Equal(t, "85.105.1.2", RemoteIP(req))

	req.RemoteAddr = "garbage"
	assert.Equal(t, "127.0.0.1", RemoteIP(req))
}

func TestToKurus(t *testing.T) {
	assert.Equal(t, int64(10000), ToKurus(decimal.RequireFromString("100.00")))
	assert.Equal(t, int64(4990), ToKurus(decimal.RequireFromString("49.90")))
	assert.Equal(t, int64(13), ToKurus(decimal.RequireFromString("0.125")))
}
