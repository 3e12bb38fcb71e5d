package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
)

type ContextKey string

const (
	RequestIDPrefix         string     = "r"
	RequestIDHeader         string     = "X-Request-ID"
	RequestIDContextKey     ContextKey = "request.id"
	RequestNumberContextKey ContextKey = "request.number"
)

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val, ok := ctx.Value(contextKey).(string); ok {
		return val
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val, ok := ctx.Value(RequestNumberContextKey).(uint64); ok {
		return val
	}
	return 0
}

// ParseBookID converts a path parameter into a book id.
func ParseBookID(value string) (int64, error) {
	return strconv.ParseInt(value, 10, 64)
}

// ParsePage reads the optional `skip` and `limit` query parameters.
func ParsePage(r *http.Request) (Page, []Violation) {
	var page Page
	var violations []Violation
	q := r.URL.Query()
	for _, p := range []struct {
		name   string
		target *int
	}{{"skip", &page.Skip}, {"limit", &page.Limit}} {
		value := q.Get(p.name)
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			violations = append(violations, IntegerViolation("query", p.name))
			continue
		}
		if n < 0 {
			violations = append(violations, Violation{
				Loc:  []string{"query", p.name},
				Msg:  "ensure this value is greater than or equal to 0",
				Type: "value_error.number.not_ge",
				Ctx:  &ViolationContext{LimitValue: 0},
			})
			continue
		}
		*p.target = n
	}
	return page, violations
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	// Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip
	}

	// Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		ip = strings.TrimSpace(ip)
		netIP = net.ParseIP(ip)
		if netIP != nil {
			return ip
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip
	}
	return ""
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory and returns a boolean result. This
// helps know if the App is running in a docker container or not.
func IsAppRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}
