package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/terradetect/terradetect/internal/config"
	"github.com/terradetect/terradetect/internal/discovery"
	"github.com/terradetect/terradetect/internal/logging"
	"github.com/terradetect/terradetect/internal/sensor"
	"github.com/terradetect/terradetect/internal/thingspeak"
	"github.com/terradetect/terradetect/internal/weather"
)

// Channel is the ThingSpeak channel the field device listens on.
type Channel interface {
	Trigger(ctx context.Context) (string, error)
	LastFeed(ctx context.Context) (*thingspeak.Feed, error)
}

// Deps are the gateway's collaborators. Nil fields are built from the
// environment by New.
type Deps struct {
	Store   sensor.Store
	Channel Channel
	Weather weather.Provider
	Hub     *sensor.Hub
}

// Server is the TerraDetect gateway: it holds the third-party credentials,
// proxies predictions and stores sensor readings.
type Server struct {
	env     *config.GatewayEnv
	store   sensor.Store
	channel Channel
	weather weather.Provider
	hub     *sensor.Hub
	handler http.Handler

	// WatchInterval and WatchTimeout bound the background channel watch
	// started by a trigger.
	WatchInterval time.Duration
	WatchTimeout  time.Duration

	mu          sync.Mutex
	lastEntry   int
	watchCancel context.CancelFunc
	wg          sync.WaitGroup

	httpServer *http.Server
}

// New creates a gateway from env. When env names a MongoDB the store is
// opened there, otherwise readings live in memory.
func New(ctx context.Context, env *config.GatewayEnv, deps Deps) (*Server, error) {
	s := &Server{
		env:           env,
		store:         deps.Store,
		channel:       deps.Channel,
		weather:       deps.Weather,
		hub:           deps.Hub,
		WatchInterval: 5 * time.Second,
		WatchTimeout:  3 * time.Minute,
	}

	if s.store == nil {
		if env.MongoURI != "" {
			store, err := sensor.NewMongoStore(ctx, env.MongoURI, env.MongoDB)
			if err != nil {
				return nil, fmt.Errorf("failed to open sensor store: %w", err)
			}
			s.store = store
		} else {
			s.store = sensor.NewMemoryStore(0)
		}
	}
	if s.channel == nil && env.ThingSpeakConfigured() {
		s.channel = thingspeak.NewClient(env.ThingSpeakURL, env.ThingSpeakChannelID,
			env.ThingSpeakReadKey, env.ThingSpeakWriteKey, env.UpstreamTimeout)
	}
	if s.weather == nil {
		s.weather = weather.NewClient(env.WeatherAPIURL, env.WeatherAPIKey, env.UpstreamTimeout)
	}
	if s.hub == nil {
		s.hub = sensor.NewHub()
	}

	s.handler = s.routes()
	return s, nil
}

// Handler returns the gateway's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve listens on addr and blocks until ctx is done or the listener
// fails. onListen, if set, is called with the bound port.
func (s *Server) Serve(ctx context.Context, addr string, onListen func(port int)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(logging.GetLogger().Named("http")),
	}

	port := ln.Addr().(*net.TCPAddr).Port
	logging.Info("Gateway listening",
		zap.String("addr", ln.Addr().String()),
		zap.Bool("thingspeak", s.channel != nil),
		zap.Bool("prediction_proxy", s.env.PredictionURL != ""),
	)
	if onListen != nil {
		onListen(port)
	}

	if s.env.MDNSEnable {
		adv, err := discovery.Advertise(port, s.features()...)
		if err != nil {
			logging.Warn("mDNS advertisement failed, continuing without it", zap.Error(err))
		} else {
			defer adv.Shutdown()
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		logging.Info("Shutdown signal received, stopping gateway...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown stops accepting requests, closes push subscribers, stops any
// channel watch and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down gateway...")

	var firstErr error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			logging.Warn("Shutdown timeout, forcing close", zap.Error(err))
			firstErr = err
		}
	}

	s.hub.Close()
	s.stopWatch()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		logging.Warn("Channel watch did not stop in time")
	}

	if err := s.store.Close(ctx); err != nil {
		logging.Error("Error closing sensor store", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	logging.Sync()
	return firstErr
}

// features lists the optional services this gateway has credentials for.
func (s *Server) features() []string {
	var out []string
	if s.channel != nil {
		out = append(out, "thingspeak")
	}
	if s.env.WeatherAPIKey != "" {
		out = append(out, "weather")
	}
	if s.env.PredictionURL != "" {
		out = append(out, "prediction")
	}
	return out
}

// Subscribers returns the number of connected push clients.
func (s *Server) Subscribers() int {
	return s.hub.Subscribers()
}
