package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/terradetect/terradetect/internal/discovery"
	"github.com/terradetect/terradetect/internal/ui"
)

var scanTimeout int

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Find gateways on the local network",
	Long: `Scan for terradetect gateways using mDNS/DNS-SD discovery.

Gateways started with MDNS_ENABLE=true advertise themselves with their
version and the services they have configured.`,
	Example: `  # Scan for 5 seconds (default)
  terradetect scan

  # Longer scan for slow networks
  terradetect scan --timeout 15`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan timeout in seconds")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("Gateway Discovery", "terradetect scan",
		ui.Param{Key: "Service", Value: discovery.ServiceType},
		ui.Param{Key: "Timeout", Value: fmt.Sprintf("%ds", scanTimeout)},
	)

	gateways, err := discovery.Scan(cmd.Context(), time.Duration(scanTimeout)*time.Second)
	if err != nil {
		p.PrintError("Scan failed", err)
		return err
	}

	if len(gateways) == 0 {
		p.PrintResult(&ui.Result{
			Type:  ui.ResultWarning,
			Title: "No gateways found",
			Troubleshooting: []string{
				"Start the gateway with MDNS_ENABLE=true",
				"Check that this computer is on the same network",
				"Multicast may be blocked; pass --gateway with the URL instead",
				"Try increasing --timeout for slower networks",
			},
		})
		return nil
	}

	res := ui.NewSuccessResult(fmt.Sprintf("Found %d gateway(s)", len(gateways)))
	for _, gw := range gateways {
		version := gw.Version
		if version == "" {
			version = "unknown"
		}
		value := gw.BaseURL() + "  version " + version
		if f := gw.GetMetadata("features"); f != "" {
			value += "  [" + strings.ReplaceAll(f, ",", ", ") + "]"
		}
		res.AddDetail(gw.Instance, value)
	}
	p.PrintResult(res)
	p.Println("Use 'terradetect --gateway <url>' to connect to one of them")
	return nil
}
