// Package messaging connects the pedal service to Redis: commands arrive on
// lists, results and telemetry go out through a hash and pub/sub channels.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/itohio/pedals/pkg/logger"
	"github.com/itohio/pedals/pkg/telemetry"
)

const (
	// StateHash holds command results and the latest telemetry.
	StateHash = "pedals"
	// EventChannel announces which StateHash field changed.
	EventChannel = "pedals"
	// TelemetryChannel carries every telemetry snapshot as JSON.
	TelemetryChannel = "pedals:telemetry"

	ConfigList    = "pedals:config"
	ProfileList   = "pedals:profile"
	CalibrateList = "pedals:calibrate"

	telemetryField = "telemetry"
	pollTimeout    = 5 * time.Second
)

// Handler executes one command and returns its textual result.
type Handler func(value string) (string, error)

// Callbacks are invoked for commands pushed onto the command lists.
type Callbacks struct {
	ConfigCallback    Handler // JSON config document, empty to export
	ProfileCallback   Handler // "list", "save:<name>", "load:<name>", "delete:<name>"
	CalibrateCallback Handler // "<channel>:min" or "<channel>:max"
}

type RedisClient struct {
	client    *redis.Client
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewRedisClient(host string, port int, l *logger.Logger, callbacks Callbacks) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%d", host, port),
			DB:   0,
		}),
		callbacks: callbacks,
		logger:    l.WithTag("redis"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(r.ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")
	return nil
}

// StartListening starts one listener per command list.
func (r *RedisClient) StartListening() {
	r.logger.Infof("Starting Redis listeners")

	r.wg.Add(3)
	go r.listCommandListener(ConfigList)
	go r.listCommandListener(ProfileList)
	go r.listCommandListener(CalibrateList)
}

func (r *RedisClient) listCommandListener(key string) {
	defer r.wg.Done()
	r.logger.Debugf("Starting list command listener for %s", key)

	for {
		// BRPOP with a short timeout so cancellation is noticed
		result, err := r.client.BRPop(r.ctx, pollTimeout, key).Result()
		if err != nil {
			if r.ctx.Err() != nil {
				r.logger.Debugf("Context cancelled, exiting %s listener", key)
				return
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			r.logger.Warnf("Error reading from %s list: %v", key, err)
			select {
			case <-r.ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if len(result) < 2 { // BRPOP returns [key, value]
			continue
		}
		r.logger.Debugf("Received command from %s: %s", key, result[1])

		field, value := r.dispatch(key, result[1])
		if err := r.publishHashSet(StateHash, field, value, EventChannel, field); err != nil {
			r.logger.Warnf("Failed to publish %s result: %v", key, err)
		}
	}
}

// dispatch runs the handler for key and returns the result field and value.
func (r *RedisClient) dispatch(key, value string) (field, result string) {
	field = key + ":result"

	var h Handler
	switch key {
	case ConfigList:
		h = r.callbacks.ConfigCallback
	case ProfileList:
		h = r.callbacks.ProfileCallback
	case CalibrateList:
		h = r.callbacks.CalibrateCallback
	}
	if h == nil {
		return field, "error: not supported"
	}

	out, err := h(value)
	if err != nil {
		r.logger.Warnf("Error handling %s command: %v", key, err)
		return field, "error: " + err.Error()
	}
	return field, out
}

// publishHashSet atomically updates a hash field and publishes a notification
func (r *RedisClient) publishHashSet(hash, field string, value interface{}, channel, payload string) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, hash, field, value)
	pipe.Publish(r.ctx, channel, payload)
	_, err := pipe.Exec(r.ctx)
	return err
}

// PublishTelemetry stores snap as the latest telemetry and publishes it.
func (r *RedisClient) PublishTelemetry(ctx context.Context, snap telemetry.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode telemetry: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.HSet(ctx, StateHash, telemetryField, payload)
	pipe.Publish(ctx, TelemetryChannel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish telemetry: %w", err)
	}
	return nil
}

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis client")
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Debugf("All Redis goroutines finished")
	case <-time.After(pollTimeout + time.Second):
		r.logger.Warnf("Timeout waiting for Redis goroutines to finish")
	}

	return r.client.Close()
}
