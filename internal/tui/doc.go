// Package tui implements the interactive soil advisory form.
//
// The form is a single full-screen Bubble Tea program. It follows the Elm
// architecture: all view state lives in Model and changes only in Update.
//
// # Layout
//
// From top to bottom the screen shows:
//   - Mode buttons: Crop, Suitability and Fertilizer
//   - Weather source buttons: Manual, Weather API and Sensors
//   - The inputs of the current mode, grouped by section
//   - The read-only sensor panel with a "Use Sensor Data" button
//   - Submit and Reset
//   - The error or result panel
//
// The body scrolls inside a viewport. The header shows the gateway URL and
// the footer shows the key bindings.
//
// # Background Work
//
// Predictions and weather acquisitions block on the network, so they are
// split in two. The first half (advisor.Orchestrator.Begin,
// source.Controller.Begin) runs on the update loop and puts the form in its
// loading state. The blocking half runs in a tea.Cmd and reports back with
// a message, which Update applies with Orchestrator.Finish or source.Apply.
// Waiting messages from the sensor poller travel over a channel that is
// drained by a command re-armed after every message.
//
// # Usage
//
//	m := tui.New(tui.Deps{
//		Orchestrator: advisor.NewOrchestrator(client),
//		Sources:      source.NewController(client, locator, waiter),
//		GatewayURL:   client.BaseURL,
//		DefaultMode:  session.ModeCrop,
//	})
//	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
package tui
