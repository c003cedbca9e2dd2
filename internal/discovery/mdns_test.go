package discovery

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/terradetect/terradetect/internal/version"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
		wantURL  string
	}{
		{
			name: "IPv4 gateway",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "terradetect-greenhouse"},
				HostName:      "greenhouse.local.",
				Port:          5000,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"version=1.2.0", "path=/"},
			},
			wantIP:   "192.168.4.16",
			wantPort: 5000,
			wantURL:  "http://192.168.4.16:5000",
		},
		{
			name: "no port uses default",
			entry: &zeroconf.ServiceEntry{
				HostName: "field.local.",
				AddrIPv4: []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantIP:   "10.0.0.5",
			wantPort: DefaultPort,
			wantURL:  "http://10.0.0.5:5000",
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				HostName: "barn.local.",
				Port:     8080,
				AddrIPv6: []net.IP{net.ParseIP("fe80::1")},
			},
			wantIP:   "fe80::1",
			wantPort: 8080,
			wantURL:  "http://[fe80::1]:8080",
		},
		{
			name: "prefers IPv4",
			entry: &zeroconf.ServiceEntry{
				HostName: "barn.local.",
				Port:     5000,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6: []net.IP{net.ParseIP("fe80::2")},
			},
			wantIP:   "192.168.1.50",
			wantPort: 5000,
			wantURL:  "http://192.168.1.50:5000",
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				HostName: "ghost.local.",
				Port:     5000,
			},
			wantNil: true,
		},
		{
			name:    "nil entry",
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if gw != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", gw)
				}
				return
			}
			if gw == nil {
				t.Fatal("parseServiceEntry() = nil, want gateway")
			}

			if gw.IP != tt.wantIP {
				t.Errorf("gw.IP = %v, want %v", gw.IP, tt.wantIP)
			}
			if gw.Port != tt.wantPort {
				t.Errorf("gw.Port = %v, want %v", gw.Port, tt.wantPort)
			}
			if gw.BaseURL() != tt.wantURL {
				t.Errorf("gw.BaseURL() = %v, want %v", gw.BaseURL(), tt.wantURL)
			}
			if gw.Hostname != tt.entry.HostName {
				t.Errorf("gw.Hostname = %v, want %v", gw.Hostname, tt.entry.HostName)
			}
			if time.Since(gw.DiscoveredAt) > time.Second {
				t.Errorf("gw.DiscoveredAt is not recent: %v", gw.DiscoveredAt)
			}
		})
	}
}

func TestParseServiceEntry_Metadata(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "terradetect-lab"},
		HostName:      "lab.local.",
		Port:          5000,
		AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
		Text:          []string{"version=1.2.0", "features=thingspeak,weather", "flag", "path=/"},
	}

	gw := parseServiceEntry(entry)
	if gw == nil {
		t.Fatal("parseServiceEntry() = nil, want gateway")
	}

	want := map[string]string{
		"version":  "1.2.0",
		"features": "thingspeak,weather",
		"flag":     "",
		"path":     "/",
	}
	if len(gw.Metadata) != len(want) {
		t.Errorf("gw.Metadata has %d entries, want %d", len(gw.Metadata), len(want))
	}
	for k, v := range want {
		if got := gw.GetMetadata(k); got != v {
			t.Errorf("gw.GetMetadata(%q) = %q, want %q", k, got, v)
		}
	}
	if gw.Version != "1.2.0" {
		t.Errorf("gw.Version = %q, want 1.2.0", gw.Version)
	}
	if gw.Instance != "terradetect-lab" {
		t.Errorf("gw.Instance = %q, want terradetect-lab", gw.Instance)
	}
	if !strings.Contains(gw.String(), "http://192.168.4.16:5000") {
		t.Errorf("gw.String() = %q, want base URL", gw.String())
	}
}

func TestGateway_GetMetadataNil(t *testing.T) {
	gw := &Gateway{}
	if got := gw.GetMetadata("version"); got != "" {
		t.Errorf("GetMetadata() = %q, want empty", got)
	}
	if !strings.Contains(gw.String(), "unknown") {
		t.Errorf("String() = %q, want unknown version", gw.String())
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

func TestTXTRecords(t *testing.T) {
	txt := TXTRecords()
	if len(txt) != 2 || txt[0] != "version="+version.Version || txt[1] != "path=/" {
		t.Errorf("TXTRecords() = %v", txt)
	}

	txt = TXTRecords("thingspeak", "prediction")
	if txt[len(txt)-1] != "features=thingspeak,prediction" {
		t.Errorf("TXTRecords(features) = %v", txt)
	}
}

func TestInstanceName(t *testing.T) {
	name := InstanceName()
	if !strings.HasPrefix(name, "terradetect") {
		t.Errorf("InstanceName() = %q, want terradetect prefix", name)
	}
	if strings.Contains(name, ".") {
		t.Errorf("InstanceName() = %q, want no domain", name)
	}
}

func TestAdvertisement_ShutdownNil(t *testing.T) {
	var a *Advertisement
	a.Shutdown()
	(&Advertisement{}).Shutdown()
}

// Live browse and register need multicast and are not exercised here.
