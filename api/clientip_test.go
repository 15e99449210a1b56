package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := parseTrustedProxies([]string{"10.0.0.0/8", "192.168.1.5", "::1"})
	require.NoError(t, err)
	require.Len(t, prefixes, 3)
	assert.Equal(t, 8, prefixes[0].Bits())
	assert.Equal(t, 32, prefixes[1].Bits(), "bare IPv4 becomes a /32")
	assert.Equal(t, 128, prefixes[2].Bits(), "bare IPv6 becomes a /128")

	_, err = parseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
}

func TestClientIP(t *testing.T) {
	opt, err := WithTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	a, _, _ := newGuardAPI(t)
	opt(a)

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		want       string
	}{
		{"direct peer, no header", "203.0.113.9:4711", "", "203.0.113.9"},
		{"untrusted peer, header ignored", "203.0.113.9:4711", "198.51.100.1", "203.0.113.9"},
		{"trusted proxy, header honored", "10.1.2.3:4711", "198.51.100.1", "198.51.100.1"},
		{"trusted proxy, first hop of chain wins", "10.1.2.3:4711", "198.51.100.1, 10.9.9.9", "198.51.100.1"},
		{"trusted proxy, garbage header falls back", "10.1.2.3:4711", "not-an-ip", "10.1.2.3"},
		{"ipv6 peer", "[2001:db8::1]:4711", "", "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			assert.Equal(t, tt.want, a.clientIP(r))
		})
	}
}

func TestMetricsCollector_AlertsOnFailureSpike(t *testing.T) {
	var alerts []AlertEvent
	m := newMetricsCollector(func(e AlertEvent) { alerts = append(alerts, e) })
	m.loginThreshold = 5

	for i := 0; i < 4; i++ {
		m.recordEvent(AuditLoginFailure)
	}
	require.Empty(t, alerts, "below threshold")

	m.recordEvent(AuditLoginFailure)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertLoginFailureSpike, alerts[0].Type)
	assert.Equal(t, 5, alerts[0].Count)
	assert.Equal(t, 5, alerts[0].Threshold)

	// The window resets after an alert, so the next failure alone does
	// not re-fire.
	m.recordEvent(AuditLoginFailure)
	assert.Len(t, alerts, 1)
}

func TestMetricsCollector_IgnoresOtherEvents(t *testing.T) {
	var alerts []AlertEvent
	m := newMetricsCollector(func(e AlertEvent) { alerts = append(alerts, e) })
	m.loginThreshold = 1

	m.recordEvent(AuditLoginSuccess)
	m.recordEvent(AuditLogout)
	assert.Empty(t, alerts)
}
