package middleware

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/interfaces/http/dto"
)

// ErrCodeForbidden is returned to clients outside an IP allowlist
const ErrCodeForbidden = "ERR_FORBIDDEN"

// IPAllowlist restricts a route to the given addresses and CIDR ranges,
// e.g. the Prometheus scraper for /metrics. Invalid entries are skipped.
// An empty list allows every client.
func IPAllowlist(entries []string) gin.HandlerFunc {
	prefixes := parsePrefixes(entries)
	if len(prefixes) == 0 {
		return passThrough
	}

	return func(c *gin.Context) {
		addr, err := netip.ParseAddr(c.ClientIP())
		if err != nil || !containsAddr(prefixes, addr.Unmap()) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
				ErrCodeForbidden,
				"Access restricted",
				c.GetString("request_id"),
			))
			return
		}
		c.Next()
	}
}

func parsePrefixes(entries []string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			if p, err := netip.ParsePrefix(entry); err == nil {
				prefixes = append(prefixes, p.Masked())
			}
			continue
		}
		if addr, err := netip.ParseAddr(entry); err == nil {
			addr = addr.Unmap()
			prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
		}
	}
	return prefixes
}

func containsAddr(prefixes []netip.Prefix, addr netip.Addr) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
