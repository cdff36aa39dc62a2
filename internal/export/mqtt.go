package export

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/taciochi/skylumos/internal/logger"
	"github.com/taciochi/skylumos/pkg/synth"
)

// FramePayload is the JSON document published per frame. Responses are
// pointers so masked elements (NaN in the recording) serialize as null;
// JSON has no NaN.
type FramePayload struct {
	RunID     string     `json:"run_id"`
	Frame     int        `json:"frame"`
	TimeNs    int64      `json:"timestamp_ns"`
	SunAltDeg float64    `json:"sun_alt_deg"`
	SunAzDeg  float64    `json:"sun_az_deg"`
	Elements  int        `json:"elements"`
	Responses []*float64 `json:"responses"`
}

// NewFramePayload flattens one recording for publication.
func NewFramePayload(runID string, rec synth.Recording) FramePayload {
	responses := make([]*float64, len(rec.Responses))
	for i := range rec.Responses {
		if math.IsNaN(rec.Responses[i]) {
			continue
		}
		responses[i] = &rec.Responses[i]
	}
	ns := int64(0)
	if !rec.Time.IsZero() {
		ns = rec.Time.UnixNano()
	}
	return FramePayload{
		RunID:     runID,
		Frame:     rec.Frame,
		TimeNs:    ns,
		SunAltDeg: radToDeg(rec.Sun.ElevationRad),
		SunAzDeg:  radToDeg(rec.Sun.Direction.Azimuth()),
		Elements:  len(rec.Responses),
		Responses: responses,
	}
}

// MQTTConfig locates the broker and the publication cadence.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	// Interval spaces consecutive frames, emulating a sensor's frame
	// rate. Must be positive.
	Interval time.Duration
}

// MQTTEmitter replays a run over MQTT, one JSON frame per interval, so
// a navigation consumer can subscribe to the synthesizer as if it were
// a live polarization sensor.
type MQTTEmitter struct {
	client   mqtt.Client
	topic    string
	interval time.Duration
}

// OpenMQTT connects to the broker. Credentials come from the caller
// (typically the environment).
func OpenMQTT(cfg MQTTConfig) (*MQTTEmitter, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("mqtt interval must be positive, got %v", cfg.Interval)
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to mqtt broker: %w", token.Error())
	}
	logger.Info("connected to mqtt broker",
		zap.String("broker", cfg.Broker),
		zap.String("topic", cfg.Topic))
	return &MQTTEmitter{client: client, topic: cfg.Topic, interval: cfg.Interval}, nil
}

// PublishRun publishes every recording in frame order, waiting one
// interval before each frame. Cancelling ctx stops the replay between
// frames and returns the context's error.
func (e *MQTTEmitter) PublishRun(ctx context.Context, meta Meta, recs []synth.Recording) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for _, rec := range recs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := e.publishFrame(meta.RunID, rec); err != nil {
			return err
		}
	}
	logger.Info("run published",
		zap.String("run_id", meta.RunID),
		zap.Int("frames", len(recs)))
	return nil
}

func (e *MQTTEmitter) publishFrame(runID string, rec synth.Recording) error {
	payload, err := json.Marshal(NewFramePayload(runID, rec))
	if err != nil {
		return fmt.Errorf("marshal frame %d: %w", rec.Frame, err)
	}
	token := e.client.Publish(e.topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish frame %d: %w", rec.Frame, token.Error())
	}
	logger.Debug("frame published", zap.Int("frame", rec.Frame), zap.Int("bytes", len(payload)))
	return nil
}

// Close disconnects from the broker, allowing a grace period for
// in-flight messages.
func (e *MQTTEmitter) Close() {
	e.client.Disconnect(250)
}
