package discovery

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/urls"
	"github.com/terradetect/terradetect/internal/version"
)

const (
	// ServiceType is the mDNS service type gateways advertise.
	ServiceType = urls.MDNSService

	// ServiceDomain is the mDNS domain.
	ServiceDomain = "local."

	// DefaultScanTimeout is how long a scan listens for answers.
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is assumed when an advert carries no port.
	DefaultPort = 5000
)

// Scanner browses the local network for gateways.
type Scanner struct {
	// Timeout is the maximum time to wait for answers.
	Timeout time.Duration
}

func NewScanner() *Scanner {
	return &Scanner{Timeout: DefaultScanTimeout}
}

// Scan returns every gateway that answered before the timeout or ctx
// ended. Gateways answering more than once are reported once.
func (s *Scanner) Scan(ctx context.Context) ([]*Gateway, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu       sync.Mutex
		gateways []*Gateway
		seen     = make(map[string]bool)
		done     = make(chan struct{})
	)
	go func() {
		defer close(done)
		for entry := range entries {
			gw := parseServiceEntry(entry)
			if gw == nil {
				continue
			}
			key := gw.BaseURL()
			mu.Lock()
			if !seen[key] {
				seen[key] = true
				gateways = append(gateways, gw)
				logging.Debug("Gateway discovered", zap.String("gateway", gw.String()))
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// The resolver closes entries once the browse context ends.
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]*Gateway(nil), gateways...), nil
}

// parseServiceEntry converts a zeroconf entry to a Gateway, or nil when the
// entry has no usable address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Gateway {
	if entry == nil {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string, len(entry.Text))
	for _, txt := range entry.Text {
		k, v, _ := strings.Cut(txt, "=")
		metadata[k] = v
	}

	return &Gateway{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Version:      metadata["version"],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Advertisement is a running gateway advert.
type Advertisement struct {
	server *zeroconf.Server
}

// Shutdown withdraws the advert.
func (a *Advertisement) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}

// InstanceName returns the advert name for this host.
func InstanceName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "terradetect"
	}
	host, _, _ = strings.Cut(host, ".")
	return "terradetect-" + host
}

// TXTRecords returns the TXT records a gateway advertises.
func TXTRecords(features ...string) []string {
	txt := []string{"version=" + version.Version, "path=/"}
	if len(features) > 0 {
		txt = append(txt, "features="+strings.Join(features, ","))
	}
	return txt
}

// Advertise announces a gateway listening on port until Shutdown is called.
func Advertise(port int, features ...string) (*Advertisement, error) {
	name := InstanceName()
	server, err := zeroconf.Register(name, ServiceType, ServiceDomain, port, TXTRecords(features...), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}
	logging.Info("Advertising gateway via mDNS",
		zap.String("instance", name),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertisement{server: server}, nil
}

// Scan is a convenience wrapper with a custom timeout.
func Scan(ctx context.Context, timeout time.Duration) ([]*Gateway, error) {
	s := NewScanner()
	if timeout > 0 {
		s.Timeout = timeout
	}
	return s.Scan(ctx)
}
