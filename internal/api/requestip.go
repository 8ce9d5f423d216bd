package api

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/axlrose023/fraud-checker/internal/heuristics"
)

// forwardedIPHeaders in trust order. Only consulted when the deployment says
// its edge proxy sets them; otherwise a client could spoof its own IP.
var forwardedIPHeaders = []string{"Cf-Connecting-Ip", "X-Forwarded-For", "X-Real-Ip"}

// RequestIPResolver picks the effective client IP for a request.
type RequestIPResolver struct {
	trustForwarded bool
}

func NewRequestIPResolver(trustForwarded bool) RequestIPResolver {
	return RequestIPResolver{trustForwarded: trustForwarded}
}

// Resolve returns the canonical client IP, or "" when none can be determined.
func (r RequestIPResolver) Resolve(c *gin.Context) string {
	if r.trustForwarded {
		for _, header := range forwardedIPHeaders {
			if ip := heuristics.NormalizeIP(c.GetHeader(header)); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		host = c.Request.RemoteAddr
	}
	return heuristics.NormalizeIP(host)
}

// RequestOrigin returns the Origin header, mapping the literal "null" (sent
// for sandboxed iframes and file:// pages) to absent.
func RequestOrigin(c *gin.Context) string {
	origin := c.GetHeader("Origin")
	if strings.ToLower(strings.TrimSpace(origin)) == "null" {
		return ""
	}
	return origin
}

// requestHeaders flattens the header map to first values. Key normalization
// happens in the scoring pipeline.
func requestHeaders(c *gin.Context) map[string]string {
	headers := make(map[string]string, len(c.Request.Header))
	for key, values := range c.Request.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	return headers
}
