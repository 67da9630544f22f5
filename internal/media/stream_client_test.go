package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

func newHelperServer(t *testing.T, handler func(conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/media/stream", r.URL.Path)
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func grantAccess(t *testing.T, conn *websocket.Conn) WSOpenMessage {
	t.Helper()
	var open WSOpenMessage
	assert.NoError(t, conn.ReadJSON(&open))
	assert.Equal(t, "open", open.Type)
	assert.NoError(t, conn.WriteJSON(WSStatusMessage{Type: "granted"}))
	return open
}

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0x80
		img.Pix[i+3] = 0xFF
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestOpenStream_Granted(t *testing.T) {
	gotOpen := make(chan WSOpenMessage, 1)
	server := newHelperServer(t, func(conn *websocket.Conn) {
		gotOpen <- grantAccess(t, conn)
		conn.ReadJSON(&WSStatusMessage{})
	})
	defer server.Close()

	s, err := OpenStream(context.Background(), server.URL, Constraints{
		Width:  1280,
		Height: 720,
		Audio:  true,
	}, zerolog.Nop())
	require.NoError(t, err)
	defer s.StopTracks()

	open := <-gotOpen
	assert.Equal(t, 1280, open.Constraints.Width)
	assert.Equal(t, 720, open.Constraints.Height)
	assert.True(t, open.Constraints.Audio)

	// Nothing buffered before the first frame.
	assert.Nil(t, s.LatestImage())
}

func TestOpenStream_Denied(t *testing.T) {
	server := newHelperServer(t, func(conn *websocket.Conn) {
		var open WSOpenMessage
		assert.NoError(t, conn.ReadJSON(&open))
		assert.NoError(t, conn.WriteJSON(WSStatusMessage{
			Type:    "denied",
			Message: "user refused camera access",
		}))
	})
	defer server.Close()

	s, err := OpenStream(context.Background(), server.URL, Constraints{}, zerolog.Nop())
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestOpenStream_Unavailable(t *testing.T) {
	server := newHelperServer(t, func(conn *websocket.Conn) {
		var open WSOpenMessage
		assert.NoError(t, conn.ReadJSON(&open))
		assert.NoError(t, conn.WriteJSON(WSStatusMessage{
			Type:    "unavailable",
			Message: "no camera present",
		}))
	})
	defer server.Close()

	s, err := OpenStream(context.Background(), server.URL, Constraints{}, zerolog.Nop())
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestOpenStream_DialFailure(t *testing.T) {
	s, err := OpenStream(context.Background(), "http://127.0.0.1:1", Constraints{}, zerolog.Nop())
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestWSStream_FrameAndAudioDelivery(t *testing.T) {
	jpegData := encodeTestJPEG(t, 64, 36)

	server := newHelperServer(t, func(conn *websocket.Conn) {
		grantAccess(t, conn)

		// Give the client a moment to register its callbacks.
		time.Sleep(200 * time.Millisecond)

		assert.NoError(t, conn.WriteJSON(WSMediaMessage{
			Type:   "frame",
			Data:   base64.StdEncoding.EncodeToString(jpegData),
			Width:  64,
			Height: 36,
		}))
		assert.NoError(t, conn.WriteJSON(WSMediaMessage{
			Type: "audio",
			Data: base64.StdEncoding.EncodeToString([]byte{0x00, 0x40, 0x00, 0x40}),
		}))
		conn.ReadJSON(&WSStatusMessage{})
	})
	defer server.Close()

	s, err := OpenStream(context.Background(), server.URL, Constraints{Audio: true}, zerolog.Nop())
	require.NoError(t, err)
	defer s.StopTracks()

	frames := make(chan *Frame, 1)
	audioChunks := make(chan []byte, 1)
	s.OnVideoFrame(func(f *Frame) { frames <- f })
	s.SetAudioSink(func(pcm []byte) { audioChunks <- pcm })

	select {
	case f := <-frames:
		assert.Equal(t, jpegData, f.JPEG)
		assert.Equal(t, 64, f.Width)
		assert.Equal(t, 36, f.Height)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for camera frame")
	}

	select {
	case pcm := <-audioChunks:
		assert.Equal(t, []byte{0x00, 0x40, 0x00, 0x40}, pcm)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for audio chunk")
	}

	// Decoded preview is now available.
	latest := s.LatestImage()
	require.NotNil(t, latest)
	bounds := latest.Bounds()
	assert.Equal(t, 64, bounds.Dx())
	assert.Equal(t, 36, bounds.Dy())
}

func TestWSStream_StopTracksIdempotent(t *testing.T) {
	server := newHelperServer(t, func(conn *websocket.Conn) {
		grantAccess(t, conn)
		conn.ReadJSON(&WSStatusMessage{})
	})
	defer server.Close()

	s, err := OpenStream(context.Background(), server.URL, Constraints{}, zerolog.Nop())
	require.NoError(t, err)

	assert.NoError(t, s.StopTracks())
	assert.NoError(t, s.StopTracks())
	assert.Nil(t, s.LatestImage())
}
