// Package urls holds every route and external endpoint the applications use,
// so a path is never spelled twice.
//
//	import "github.com/terradetect/terradetect/internal/urls"
//
//	resp, err := http.Get(base + urls.SensorFetch)
package urls
