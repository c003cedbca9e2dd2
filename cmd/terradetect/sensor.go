package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/terradetect/terradetect/internal/sensor"
	"github.com/terradetect/terradetect/internal/source"
	"github.com/terradetect/terradetect/internal/ui"
)

// Sensor command flags
var (
	sensorDevice   string
	historyPage    int
	historyPerPage int
)

var sensorCmd = &cobra.Command{
	Use:   "sensor",
	Short: "Read the field sensors through the gateway",
	Long: `Trigger the field sensors and read their values through the gateway.

The sensors publish to a ThingSpeak channel, or post directly to the
gateway. The gateway keeps every reading it sees.`,
}

var sensorTriggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Trigger a reading and wait for it",
	Long: `Ask the sensors for a new reading and wait until it arrives.

The wait strategy comes from the sensor section of the config file: poll
the gateway, listen on its push stream, or wait a fixed delay.`,
	Example: `  terradetect sensor trigger
  terradetect sensor trigger --gateway http://192.168.1.20:5000`,
	RunE: runSensorTrigger,
}

var sensorFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Show the newest reading on the sensor channel",
	RunE:  runSensorFetch,
}

var sensorLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the newest reading stored by the gateway",
	RunE:  runSensorLatest,
}

var sensorHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List readings stored by the gateway, newest first",
	Example: `  terradetect sensor history
  terradetect sensor history --device esp32-01 --page 2 --per-page 20`,
	RunE: runSensorHistory,
}

func init() {
	sensorLatestCmd.Flags().StringVar(&sensorDevice, "device", "", "Only readings from this device ID")
	sensorHistoryCmd.Flags().StringVar(&sensorDevice, "device", "", "Only readings from this device ID")
	sensorHistoryCmd.Flags().IntVar(&historyPage, "page", 1, "Page number")
	sensorHistoryCmd.Flags().IntVar(&historyPerPage, "per-page", 10, "Readings per page (max 100)")

	sensorCmd.AddCommand(sensorTriggerCmd, sensorFetchCmd, sensorLatestCmd, sensorHistoryCmd)
	rootCmd.AddCommand(sensorCmd)
}

func runSensorTrigger(cmd *cobra.Command, _ []string) error {
	client := newClient(settings)
	waiter := source.NewWaiter(settings.Sensor, client.StreamURL())

	runner := ui.NewRunner(ui.RunnerConfig{
		Title:   "Sensor Reading",
		Command: "terradetect sensor trigger",
		Params: []ui.Param{
			{Key: "Gateway", Value: client.BaseURL},
			{Key: "Wait", Value: settings.Sensor.Wait},
		},
		StepNames:    []string{"Trigger sensors", "Wait for new reading"},
		Troubleshoot: troubleshooting,
	})

	return runner.Run(cmd.Context(), func(ctx context.Context, onStep ui.StepCallback) (*ui.Result, error) {
		onStep(1, ui.StepRunning, "")
		at := time.Now()
		trig, err := client.TriggerSensor(ctx)
		if err != nil {
			onStep(1, ui.StepFailed, "")
			return nil, err
		}
		ticket := source.NewTicket(at, trig)
		note := ""
		if ticket.EntryID > 0 {
			note = "entry " + strconv.Itoa(ticket.EntryID)
		}
		onStep(1, ui.StepComplete, note)

		onStep(2, ui.StepRunning, "")
		resp, err := waiter.Wait(ctx, ticket, client.FetchSensor, func(msg string) {
			if msg != "" {
				onStep(2, ui.StepRunning, msg)
			}
		})
		if err != nil {
			onStep(2, ui.StepFailed, "")
			return nil, err
		}
		onStep(2, ui.StepComplete, "")

		return readingResult("New reading received", resp.Data, resp.EntryID, resp.Timestamp), nil
	})
}

func runSensorFetch(cmd *cobra.Command, _ []string) error {
	client := newClient(settings)
	p := ui.NewPrinter(cmd.OutOrStdout())

	resp, err := client.FetchSensor(cmd.Context())
	if err != nil {
		p.PrintError("Fetch failed", err, troubleshooting(err)...)
		return err
	}
	p.PrintResult(readingResult(resp.Message, resp.Data, resp.EntryID, resp.Timestamp))
	return nil
}

func runSensorLatest(cmd *cobra.Command, _ []string) error {
	client := newClient(settings)
	p := ui.NewPrinter(cmd.OutOrStdout())

	rec, err := client.LatestReading(cmd.Context(), sensorDevice)
	if err != nil {
		p.PrintError("No stored reading", err, troubleshooting(err)...)
		return err
	}
	res := readingResult("Latest stored reading", rec.Values, 0, rec.Timestamp)
	if rec.DeviceID != "" {
		res.Details = append([]ui.Param{{Key: "Device", Value: rec.DeviceID}}, res.Details...)
	}
	res.AddDetail("Source", rec.Source)
	p.PrintResult(res)
	return nil
}

func runSensorHistory(cmd *cobra.Command, _ []string) error {
	client := newClient(settings)
	p := ui.NewPrinter(cmd.OutOrStdout())

	page, err := client.History(cmd.Context(), sensorDevice, historyPage, historyPerPage)
	if err != nil {
		p.PrintError("History unavailable", err, troubleshooting(err)...)
		return err
	}

	if len(page.Records) == 0 {
		p.PrintWarning("No readings stored", ui.Param{Key: "Total", Value: strconv.FormatInt(page.Total, 10)})
		return nil
	}

	res := ui.NewSuccessResult(fmt.Sprintf("Page %d (%d readings in total)", page.Page, page.Total))
	for _, rec := range page.Records {
		res.AddDetail(rec.Timestamp.Local().Format("2006-01-02 15:04"), summarize(rec))
	}
	p.PrintResult(res)
	return nil
}

// readingResult renders a reading with its channel entry and time.
func readingResult(title string, r sensor.Reading, entryID int, at time.Time) *ui.Result {
	if title == "" {
		title = "Sensor reading"
	}
	res := ui.NewSuccessResult(title, readingDetails(r)...)
	if entryID > 0 {
		res.AddDetail("Entry", strconv.Itoa(entryID))
	}
	if !at.IsZero() {
		res.AddDetail("Recorded", at.Local().Format(time.RFC1123))
	}
	return res
}

func summarize(rec sensor.Record) string {
	s := fmt.Sprintf("T %s  H %s  pH %s  N %s  P %s  K %s",
		source.PanelValue(rec.Values, sensor.Temperature),
		source.PanelValue(rec.Values, sensor.Humidity),
		source.PanelValue(rec.Values, sensor.PH),
		source.PanelValue(rec.Values, sensor.Nitrogen),
		source.PanelValue(rec.Values, sensor.Phosphorus),
		source.PanelValue(rec.Values, sensor.Potassium),
	)
	if rec.DeviceID != "" {
		s += "  [" + rec.DeviceID + "]"
	}
	return s
}
