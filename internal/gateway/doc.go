// Package gateway is the HTTP service between the advisor clients and the
// third-party services.
//
// It holds every credential: the weather API key, the ThingSpeak channel
// keys and the field devices' API keys. Clients only ever talk to it.
//
// Routes:
//
//	GET  /healthz                  liveness and configured services
//	POST /predict                  proxied to PREDICTION_URL
//	POST /api/thingspeak/trigger   write field1=1 to the ThingSpeak channel
//	GET  /api/thingspeak/fetch     newest channel entry
//	GET  /api/sensor/latest        newest stored reading
//	GET  /api/sensor/history       stored readings, paged
//	POST /api/esp32                reading pushed by a field device
//	GET  /api/weather              current conditions for lat/lon
//	GET  /ws/sensor                websocket feed of new readings
//
// A trigger starts a background watch of the channel; once the device's
// reading lands it is stored and pushed to stream subscribers.
package gateway
