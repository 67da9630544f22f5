package pose

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/normanking/puppetcam/internal/metrics"
)

// WSInitMessage configures the detector sidecar
type WSInitMessage struct {
	Type   string `json:"type"`
	Config Config `json:"config"`
}

// WSFrameMessage submits one frame for detection
type WSFrameMessage struct {
	Type     string `json:"type"`
	Data     string `json:"data"` // base64 JPEG
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Sequence int64  `json:"sequence"`
}

// WSResultMessage carries one detection result
type WSResultMessage struct {
	Type      string     `json:"type"`
	Sequence  int64      `json:"sequence"`
	Keypoints []Keypoint `json:"keypoints,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// WSDetector talks to the pose detector sidecar over WebSocket. The sidecar
// owns the model assets; construction fails with ErrInitFailed when they are
// unreachable. One frame may be in flight at a time; Submit returns ErrBusy
// while a result is outstanding.
type WSDetector struct {
	conn   *websocket.Conn
	logger zerolog.Logger
	cancel context.CancelFunc

	mu       sync.Mutex
	inflight bool
	closed   bool
	sequence int64

	cbMu     sync.RWMutex
	onResult ResultFunc
}

// NewWSDetector dials the sidecar, sends the configuration, and waits for
// the ready handshake.
func NewWSDetector(ctx context.Context, baseURL string, cfg Config, logger zerolog.Logger) (*WSDetector, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse url: %v", ErrInitFailed, err)
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/pose/stream"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %v", ErrInitFailed, err)
	}

	d := &WSDetector{
		conn:   conn,
		logger: logger.With().Str("component", "pose-detector").Logger(),
	}

	if err := conn.WriteJSON(WSInitMessage{Type: "init", Config: cfg}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: write init: %v", ErrInitFailed, err)
	}

	// The sidecar fetches model assets during init; bound the wait.
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	} else {
		conn.SetReadDeadline(time.Now().Add(15 * time.Second))
	}

	var resp WSResultMessage
	if err := conn.ReadJSON(&resp); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: read handshake: %v", ErrInitFailed, err)
	}
	conn.SetReadDeadline(time.Time{})

	switch resp.Type {
	case "ready":
	case "init_error":
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrInitFailed, resp.Message)
	default:
		conn.Close()
		return nil, fmt.Errorf("%w: unexpected handshake %q", ErrInitFailed, resp.Type)
	}

	d.logger.Info().
		Int("model_complexity", cfg.ModelComplexity).
		Str("asset_version", cfg.AssetVersion).
		Msg("Pose detector ready")

	readCtx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	go d.readLoop(readCtx)

	return d, nil
}

// SetResultCallback registers the result callback. A nil snapshot is
// delivered when no body was detected.
func (d *WSDetector) SetResultCallback(fn ResultFunc) {
	d.cbMu.Lock()
	d.onResult = fn
	d.cbMu.Unlock()
}

// Submit forwards one frame to the detector. Returns ErrBusy while a prior
// frame is still being processed, so callers can drop rather than queue.
func (d *WSDetector) Submit(jpeg []byte, width, height int) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	if d.inflight {
		d.mu.Unlock()
		return ErrBusy
	}
	d.inflight = true
	d.sequence++
	seq := d.sequence
	conn := d.conn
	d.mu.Unlock()

	msg := WSFrameMessage{
		Type:     "frame",
		Data:     base64.StdEncoding.EncodeToString(jpeg),
		Width:    width,
		Height:   height,
		Sequence: seq,
	}

	if err := conn.WriteJSON(msg); err != nil {
		d.mu.Lock()
		d.inflight = false
		d.mu.Unlock()
		return fmt.Errorf("write frame: %w", err)
	}

	return nil
}

func (d *WSDetector) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var raw json.RawMessage
		if err := d.conn.ReadJSON(&raw); err != nil {
			d.mu.Lock()
			closed := d.closed
			d.inflight = false
			d.mu.Unlock()
			if !closed {
				d.logger.Warn().Err(err).Msg("Detector stream read failed")
			}
			return
		}

		d.handleMessage(raw)
	}
}

func (d *WSDetector) handleMessage(raw json.RawMessage) {
	var msg WSResultMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		d.logger.Warn().Err(err).Msg("Failed to parse detector message")
		return
	}

	switch msg.Type {
	case "result":
		snap := &Snapshot{Points: msg.Keypoints, Taken: time.Now()}
		d.deliver(snap)

	case "no_detection":
		d.deliver(nil)

	case "error":
		// A single failed invocation; log, clear the gate, keep going.
		metrics.DetectorErrors.Inc()
		d.logger.Warn().Str("message", msg.Message).Msg("Detector frame error")
		d.mu.Lock()
		d.inflight = false
		d.mu.Unlock()

	default:
		d.logger.Debug().Str("type", msg.Type).Msg("Unknown detector message type")
	}
}

func (d *WSDetector) deliver(snap *Snapshot) {
	d.mu.Lock()
	d.inflight = false
	d.mu.Unlock()

	d.cbMu.RLock()
	cb := d.onResult
	d.cbMu.RUnlock()

	if cb != nil {
		cb(snap)
	}
}

// Close releases the detector. Safe to call more than once.
func (d *WSDetector) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
	err := d.conn.Close()
	d.logger.Info().Msg("Pose detector closed")
	return err
}
