package urls

// Gateway and prediction backend routes, relative to the configured base URL.
const (
	Predict       = "/predict"
	SensorTrigger = "/api/thingspeak/trigger"
	SensorFetch   = "/api/thingspeak/fetch"
	SensorLatest  = "/api/sensor/latest"
	SensorHistory = "/api/sensor/history"
	SensorIngest  = "/api/esp32"
	SensorStream  = "/ws/sensor"
	Weather       = "/api/weather"
	Health        = "/healthz"
)

// Third-party services the gateway talks to.
const (
	// ThingSpeakAPI is the ThingSpeak REST root (update + channel feeds).
	ThingSpeakAPI = "https://api.thingspeak.com"

	// WeatherAPI is the weatherapi.com v1 root used for current conditions.
	WeatherAPI = "https://api.weatherapi.com/v1"

	// IPGeolocation answers with the caller's approximate coordinates.
	IPGeolocation = "http://ip-api.com/json"
)

// DefaultGateway is where the form looks when nothing is configured.
const DefaultGateway = "http://localhost:5000"

// MDNSService is the DNS-SD service type the gateway advertises.
const MDNSService = "_terradetect._tcp"
