package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSOpenMessage requests device access with constraints
type WSOpenMessage struct {
	Type        string      `json:"type"`
	Constraints Constraints `json:"constraints"`
}

// WSStatusMessage answers the open request
type WSStatusMessage struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

// WSMediaMessage carries a camera frame or an audio chunk
type WSMediaMessage struct {
	Type   string `json:"type"`
	Data   string `json:"data"` // base64 JPEG or base64 PCM16
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// WSStream is a Stream backed by the local capture helper. The helper owns
// the OS camera and microphone; this client performs the access handshake
// and receives frame and audio messages.
type WSStream struct {
	conn   *websocket.Conn
	logger zerolog.Logger
	cancel context.CancelFunc

	mu      sync.RWMutex
	closed  bool
	latest  image.Image
	onFrame func(*Frame)
	onAudio func([]byte)
}

// OpenStream dials the capture helper and requests camera+microphone access
// with the given constraints. Fails with ErrAccessDenied or ErrUnavailable
// when the platform refuses; nothing is left acquired on failure.
func OpenStream(ctx context.Context, baseURL string, c Constraints, logger zerolog.Logger) (*WSStream, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/media/stream"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial capture helper: %v", ErrUnavailable, err)
	}

	s := &WSStream{
		conn:   conn,
		logger: logger.With().Str("component", "media-stream").Logger(),
	}

	if err := conn.WriteJSON(WSOpenMessage{Type: "open", Constraints: c}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: write open: %v", ErrUnavailable, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	} else {
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	}

	var status WSStatusMessage
	if err := conn.ReadJSON(&status); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: read handshake: %v", ErrUnavailable, err)
	}
	conn.SetReadDeadline(time.Time{})

	switch status.Type {
	case "granted":
	case "denied":
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrAccessDenied, status.Message)
	case "unavailable":
		conn.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, status.Message)
	default:
		conn.Close()
		return nil, fmt.Errorf("%w: unexpected handshake %q", ErrUnavailable, status.Type)
	}

	s.logger.Info().
		Int("width", c.Width).
		Int("height", c.Height).
		Bool("audio", c.Audio).
		Msg("Media access granted")

	readCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.readLoop(readCtx)

	return s, nil
}

// OnVideoFrame registers the per-frame callback
func (s *WSStream) OnVideoFrame(fn func(*Frame)) {
	s.mu.Lock()
	s.onFrame = fn
	s.mu.Unlock()
}

// SetAudioSink registers the consumer of raw PCM bytes
func (s *WSStream) SetAudioSink(fn func([]byte)) {
	s.mu.Lock()
	s.onAudio = fn
	s.mu.Unlock()
}

// LatestImage returns the most recent decoded camera frame, or nil before
// the stream has buffered one.
func (s *WSStream) LatestImage() image.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *WSStream) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		var raw json.RawMessage
		if err := s.conn.ReadJSON(&raw); err != nil {
			s.mu.RLock()
			closed := s.closed
			s.mu.RUnlock()
			if !closed {
				s.logger.Warn().Err(err).Msg("Media stream read failed")
			}
			return
		}

		s.handleMessage(raw)
	}
}

func (s *WSStream) handleMessage(raw json.RawMessage) {
	var msg WSMediaMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to parse media message")
		return
	}

	switch msg.Type {
	case "frame":
		data, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to decode camera frame")
			return
		}
		frame := &Frame{
			JPEG:      data,
			Width:     msg.Width,
			Height:    msg.Height,
			Timestamp: time.Now(),
		}

		// Decoded copy feeds the preview thumbnail. A bad frame is
		// logged and skipped, not fatal.
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to decode frame image")
		} else {
			s.mu.Lock()
			s.latest = img
			s.mu.Unlock()
		}

		s.mu.RLock()
		cb := s.onFrame
		s.mu.RUnlock()
		if cb != nil {
			cb(frame)
		}

	case "audio":
		data, err := base64.StdEncoding.DecodeString(msg.Data)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Failed to decode audio chunk")
			return
		}
		s.mu.RLock()
		sink := s.onAudio
		s.mu.RUnlock()
		if sink != nil {
			sink(data)
		}

	case "error":
		s.logger.Warn().Msg("Capture helper reported an error")

	default:
		s.logger.Debug().Str("type", msg.Type).Msg("Unknown media message type")
	}
}

// StopTracks releases the devices and closes the connection. Safe to call
// more than once.
func (s *WSStream) StopTracks() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.latest = nil
	s.onFrame = nil
	s.onAudio = nil
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	// Best effort; the helper also releases on disconnect.
	_ = s.conn.WriteJSON(WSStatusMessage{Type: "close"})
	err := s.conn.Close()
	s.logger.Info().Msg("Media tracks stopped")
	return err
}
