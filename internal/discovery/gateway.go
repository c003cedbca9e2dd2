package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Gateway is a TerraDetect gateway found on the local network.
type Gateway struct {
	// Instance is the advertised instance name (e.g. "terradetect-greenhouse").
	Instance string

	// Hostname is the mDNS hostname (e.g. "greenhouse.local.").
	Hostname string

	IP   string
	Port int

	// Version is the gateway build, from the "version" TXT record.
	Version string

	// Metadata holds every TXT record.
	Metadata map[string]string

	DiscoveredAt time.Time
}

func (g *Gateway) String() string {
	v := g.Version
	if v == "" {
		v = "unknown"
	}
	return fmt.Sprintf("%s (%s) at %s [version %s]", g.Instance, g.Hostname, g.BaseURL(), v)
}

// BaseURL returns the gateway's HTTP base URL, suitable for
// the client's gateway_url setting.
func (g *Gateway) BaseURL() string {
	return "http://" + net.JoinHostPort(g.IP, strconv.Itoa(g.Port))
}

// GetMetadata returns a TXT value, or "" when absent.
func (g *Gateway) GetMetadata(key string) string {
	if g.Metadata == nil {
		return ""
	}
	return g.Metadata[key]
}
