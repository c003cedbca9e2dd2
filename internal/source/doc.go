// Package source fills the form's weather fields from the selected source:
// manual entry, the weather API (through the gateway) or the field sensor.
//
// Sensor acquisition triggers a measurement and then waits for it using a
// Waiter: a fixed delay, bounded polling, or the gateway's push stream.
// Acquisitions are cancellable and a new one supersedes the previous.
package source
