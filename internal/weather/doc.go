// Package weather provides current conditions and the locators that decide
// where to ask for them.
//
// The gateway owns a Client (weatherapi.com) because it holds the API key.
// The form owns a Locator and asks the gateway for conditions at the
// coordinates it found.
package weather
