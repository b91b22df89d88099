package realtime

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	wsConnectionAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huddle_realtime_connection_attempts_total",
		Help: "The total number of connection attempts to the realtime websocket",
	})

	wsConnectionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "huddle_realtime_connection_errors_total",
		Help: "The total number of connection errors encountered",
	})

	wsCurrentConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huddle_realtime_current_connections",
		Help: "The current number of active realtime websocket connections",
	})

	wsConnectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "huddle_realtime_connection_duration_seconds",
		Help:    "Duration of realtime websocket connections",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	wsPingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "huddle_realtime_ping_latency_seconds",
		Help:    "Latency of websocket ping/pong round trips",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
	})

	wsHostSwitches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huddle_realtime_host_switches_total",
		Help: "Number of times the connection switched to a different host",
	}, []string{"from_host", "to_host"})
)

const (
	wsReadBufferSize  = 1024 * 1024 // 1MB
	wsWriteBufferSize = 1024        // 1KB
	wsReadTimeout     = 60 * time.Second
	wsWriteTimeout    = 10 * time.Second
	wsPingInterval    = 30 * time.Second
)

// ChannelConfig holds configuration for the realtime event channel
type ChannelConfig struct {
	// Hosts is a list of websocket endpoints to try in order
	// e.g. ["wss://api.example.com", "wss://api-fallback.example.com"]
	Hosts     []string
	Compress  bool
	UserAgent string
}

// RawMessage represents an unparsed message from the websocket
type RawMessage struct {
	MessageType int    // websocket.TextMessage or websocket.BinaryMessage
	Data        []byte // Raw message data
}

// Connect establishes a websocket connection to the realtime event
// stream, failing over between hosts with exponential backoff.
func Connect(ctx context.Context, config ChannelConfig) (*websocket.Conn, error) {

	log.WithFields(log.Fields{
		"hosts": config.Hosts,
	}).Info("Connecting to realtime event channel")

	if len(config.Hosts) == 0 {
		return nil, fmt.Errorf("no hosts provided in config")
	}

	currentHostIdx := 0

	dialer := websocket.Dialer{
		ReadBufferSize:   wsReadBufferSize,
		WriteBufferSize:  wsWriteBufferSize,
		HandshakeTimeout: 45 * time.Second,
		NetDialContext: (&net.Dialer{
			Timeout:   45 * time.Second,
			KeepAlive: 45 * time.Second,
		}).DialContext,
	}

	// Set up exponential backoff for reconnection attempts
	backoff := backoff.NewExponentialBackOff()
	backoff.InitialInterval = 100 * time.Millisecond
	backoff.MaxInterval = 30 * time.Second
	backoff.Multiplier = 1.5
	backoff.MaxElapsedTime = 0 // Never stop retrying

	var conn *websocket.Conn

	// Connection loop with retry and failover logic
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			currentHost := config.Hosts[currentHostIdx]

			u, err := url.Parse(fmt.Sprintf("%s/events", currentHost))
			if err != nil {
				return nil, fmt.Errorf("failed to parse URL: %w", err)
			}

			q := u.Query()
			if config.Compress {
				q.Set("compress", "true")
			}
			u.RawQuery = q.Encode()

			headers := http.Header{}
			if config.UserAgent != "" {
				headers.Set("User-Agent", config.UserAgent)
			}
			if config.Compress {
				headers.Set("Accept-Encoding", "zstd")
			}

			wsConnectionAttempts.Inc()

			var dialErr error
			conn, _, dialErr = dialer.Dial(u.String(), headers)

			if dialErr != nil {
				wsConnectionErrors.Inc()
				log.Errorf("Error connecting to realtime host %s: %s", currentHost, dialErr)

				// Try next host
				nextHostIdx := (currentHostIdx + 1) % len(config.Hosts)
				if nextHostIdx != currentHostIdx {
					wsHostSwitches.WithLabelValues(currentHost, config.Hosts[nextHostIdx]).Inc()
					log.Infof("Switching from host %s to %s", currentHost, config.Hosts[nextHostIdx])
					currentHostIdx = nextHostIdx
					// Reset backoff when switching hosts
					backoff.Reset()
					continue
				}

				// If we've tried all hosts, wait before retrying
				time.Sleep(backoff.NextBackOff())
				continue
			}

			// Reset backoff on successful connection
			backoff.Reset()
			wsCurrentConnections.Inc()

			connStart := time.Now()
			go func() {
				<-ctx.Done()
				wsConnectionDuration.Observe(time.Since(connStart).Seconds())
				wsCurrentConnections.Dec()
			}()

			setupConnectionHandlers(conn)

			go managePingPong(ctx, conn)

			return conn, nil
		}
	}
}

// setupConnectionHandlers configures the websocket connection handlers
func setupConnectionHandlers(conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))

	conn.SetCloseHandler(func(code int, text string) error {
		log.Infof("WebSocket connection closed with code %d: %s", code, text)
		return nil
	})

	conn.SetPingHandler(func(appData string) error {
		log.Debug("Received ping from server")
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	conn.SetPongHandler(func(appData string) error {
		log.Debug("Received pong from server")
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
}

// managePingPong handles the ping/pong keepalive for the websocket connection
func managePingPong(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingStart := time.Now()
			log.Debug("Sending ping to check connection")

			if err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(wsWriteTimeout)); err != nil {
				log.Warn("Ping failed, closing connection for restart: ", err)
				wsConnectionErrors.Inc()
				conn.Close()
				return
			}

			conn.SetPongHandler(func(appData string) error {
				wsPingLatency.Observe(time.Since(pingStart).Seconds())
				return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
			})

			// Reset read deadline after successful ping
			if err := conn.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
				log.Warn("Failed to set read deadline, closing connection: ", err)
				wsConnectionErrors.Inc()
				conn.Close()
				return
			}
		}
	}
}

// Run connects to the realtime channel and feeds raw messages into
// workerQueue until ctx is cancelled. A dropped connection is redialed
// through Connect's backoff/failover loop.
func Run(ctx context.Context, config ChannelConfig, workerQueue chan *RawMessage) error {
	for {
		conn, err := Connect(ctx, config)
		if err != nil {
			return err
		}

		if err := readLoop(ctx, conn, workerQueue); err != nil {
			log.Warnf("Realtime connection lost, reconnecting: %v", err)
			continue
		}

		// ctx cancelled
		return nil
	}
}

func readLoop(ctx context.Context, conn *websocket.Conn, workerQueue chan *RawMessage) error {
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Errorf("Unexpected websocket close: %v", err)
				}
				wsConnectionErrors.Inc()
				return err
			}

			rawMsg := &RawMessage{
				MessageType: messageType,
				Data:        message,
			}

			workerQueue <- rawMsg
		}
	}
}
