package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/terradetect/terradetect/internal/weather"
	"github.com/terradetect/terradetect/internal/ui"
)

var (
	weatherLat float64
	weatherLon float64
)

var weatherCmd = &cobra.Command{
	Use:   "weather",
	Short: "Show current weather through the gateway",
	Long: `Show the current conditions and the rainfall estimate the form uses.

Without --lat and --lon the location comes from the config file, either
fixed coordinates or an IP address lookup.`,
	Example: `  terradetect weather --lat 12.97 --lon 77.59
  terradetect weather`,
	RunE: runWeather,
}

func init() {
	weatherCmd.Flags().Float64Var(&weatherLat, "lat", 0, "Latitude")
	weatherCmd.Flags().Float64Var(&weatherLon, "lon", 0, "Longitude")
	weatherCmd.MarkFlagsRequiredTogether("lat", "lon")

	rootCmd.AddCommand(weatherCmd)
}

func runWeather(cmd *cobra.Command, _ []string) error {
	client := newClient(settings)
	p := ui.NewPrinter(cmd.OutOrStdout())
	ctx := cmd.Context()

	var at weather.Coordinates
	if cmd.Flags().Changed("lat") {
		at = weather.Coordinates{Latitude: weatherLat, Longitude: weatherLon}
		if err := at.Validate(); err != nil {
			return err
		}
	} else {
		loc := newLocator(settings)
		if loc == nil {
			return fmt.Errorf("%w: pass --lat and --lon or set location in the config file", weather.ErrGeolocationUnsupported)
		}
		var err error
		if at, err = loc.Locate(ctx); err != nil {
			return fmt.Errorf("geolocation error: %w", err)
		}
	}

	cond, err := client.CurrentWeather(ctx, at)
	if err != nil {
		p.PrintError("Weather unavailable", err, troubleshooting(err)...)
		return err
	}

	p.PrintSuccess("Current conditions",
		ui.Param{Key: "Location", Value: fmt.Sprintf("%.4f, %.4f", at.Latitude, at.Longitude)},
		ui.Param{Key: "Temperature", Value: strconv.FormatFloat(cond.Temperature, 'f', 1, 64) + "°C"},
		ui.Param{Key: "Humidity", Value: strconv.FormatFloat(cond.Humidity, 'f', 1, 64) + "%"},
		ui.Param{Key: "Precipitation", Value: strconv.FormatFloat(cond.PrecipMM, 'f', 1, 64) + " mm"},
		ui.Param{Key: "Annual rainfall", Value: strconv.FormatFloat(weather.EstimateAnnualRainfall(cond.PrecipMM), 'f', 0, 64) + " mm (estimate)"},
	)
	return nil
}
