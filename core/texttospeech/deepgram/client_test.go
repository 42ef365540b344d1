package deepgram

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-pet/core/audio"
)

type testPlayback struct {
	mu      sync.Mutex
	audio   []byte
	clears  atomic.Int32
	awaited atomic.Int32
}

func (p *testPlayback) SendAudio(audio []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.audio = append(p.audio, audio...)
	return nil
}

func (p *testPlayback) ClearBuffer() { p.clears.Add(1) }

func (p *testPlayback) AwaitMark(context.Context) error {
	p.awaited.Add(1)
	return nil
}

func (p *testPlayback) EncodingInfo() audio.EncodingInfo { return audio.GetDefaultEncodingInfo() }

func (p *testPlayback) received() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.audio...)
}

// newSpeakServer starts a fake speak endpoint. If hold is true the server
// never confirms the flush.
func newSpeakServer(t *testing.T, hold bool, received chan<- websocketMessage) *url.URL {
	t.Helper()
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "token key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var msg websocketMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			select {
			case received <- msg:
			default:
			}
			if msg.Type == "Flush" && !hold {
				_ = conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3, 4})
				_ = conn.WriteJSON(websocketMessage{Type: "Flushed"})
			}
		}
	}))
	t.Cleanup(server.Close)

	endpoint, _ := url.Parse(server.URL)
	endpoint.Scheme = "ws"
	return endpoint
}

func TestNewTextToSpeechClientValidates(t *testing.T) {
	if _, err := NewTextToSpeechClient("", VoiceAsteria, &testPlayback{}); err == nil {
		t.Fatalf("expected error for missing api key")
	}
	if _, err := NewTextToSpeechClient("key", "aura-unknown", &testPlayback{}); err == nil {
		t.Fatalf("expected error for invalid voice")
	}
	if _, err := NewTextToSpeechClient("key", "", nil); err == nil {
		t.Fatalf("expected error for missing playback device")
	}
}

func TestSpeakPlaysAudioAndCompletesOnce(t *testing.T) {
	received := make(chan websocketMessage, 8)
	endpoint := newSpeakServer(t, false, received)
	playback := &testPlayback{}

	client, err := NewTextToSpeechClient("key", "", playback, WithEndpoint(*endpoint))
	if err != nil {
		t.Fatalf("NewTextToSpeechClient() error: %v", err)
	}

	done := make(chan struct{}, 2)
	if err := client.Speak(context.Background(), "hello", func() { done <- struct{}{} }); err != nil {
		t.Fatalf("Speak() error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for completion")
	}

	if first := <-received; first.Type != "Speak" || first.Text != "hello" {
		t.Fatalf("expected Speak message first, got %+v", first)
	}
	if got := playback.received(); len(got) != 4 {
		t.Fatalf("expected 4 bytes of audio, got %d", len(got))
	}
	if playback.awaited.Load() != 1 {
		t.Fatalf("expected playback to be drained once")
	}

	_ = client.Cancel()
	select {
	case <-done:
		t.Fatalf("expected completion exactly once")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCancelCompletesAndClearsPlayback(t *testing.T) {
	received := make(chan websocketMessage, 8)
	endpoint := newSpeakServer(t, true, received)
	playback := &testPlayback{}

	client, err := NewTextToSpeechClient("key", VoiceLuna, playback, WithEndpoint(*endpoint))
	if err != nil {
		t.Fatalf("NewTextToSpeechClient() error: %v", err)
	}

	var completions atomic.Int32
	done := make(chan struct{})
	if err := client.Speak(context.Background(), "a long story", func() {
		if completions.Add(1) == 1 {
			close(done)
		}
	}); err != nil {
		t.Fatalf("Speak() error: %v", err)
	}

	if err := client.Cancel(); err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for completion after cancel")
	}
	if playback.clears.Load() == 0 {
		t.Fatalf("expected playback buffer to be cleared")
	}
	time.Sleep(20 * time.Millisecond)
	if got := completions.Load(); got != 1 {
		t.Fatalf("expected exactly one completion, got %d", got)
	}
}

func TestSpeakDialFailureCompletes(t *testing.T) {
	endpoint := newSpeakServer(t, false, make(chan websocketMessage, 1))
	client, _ := NewTextToSpeechClient("wrong", "", &testPlayback{}, WithEndpoint(*endpoint))

	var completions atomic.Int32
	done := make(chan struct{})
	err := client.Speak(context.Background(), "hello", func() {
		if completions.Add(1) == 1 {
			close(done)
		}
	})
	if err != nil {
		t.Fatalf("Speak() error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for completion after a failed dial")
	}
	time.Sleep(20 * time.Millisecond)
	if got := completions.Load(); got != 1 {
		t.Fatalf("expected exactly one completion, got %d", got)
	}
}

// newSilentListener accepts connections and never answers the handshake.
func newSilentListener(t *testing.T) *url.URL {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		var conns []net.Conn
		defer func() {
			for _, conn := range conns {
				_ = conn.Close()
			}
		}()
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conns = append(conns, conn)
		}
	}()
	return &url.URL{Scheme: "ws", Host: listener.Addr().String(), Path: "/v1/speak"}
}

func TestSpeakDoesNotWaitForHandshake(t *testing.T) {
	endpoint := newSilentListener(t)
	dialer := &websocket.Dialer{HandshakeTimeout: 200 * time.Millisecond}
	playback := &testPlayback{}
	client, _ := NewTextToSpeechClient("key", "", playback, WithEndpoint(*endpoint), WithDialer(dialer))

	done := make(chan struct{})
	var once sync.Once
	returned := make(chan error, 1)
	go func() {
		returned <- client.Speak(context.Background(), "hello", func() { once.Do(func() { close(done) }) })
	}()

	select {
	case err := <-returned:
		if err != nil {
			t.Fatalf("Speak() error: %v", err)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("Speak blocked on the websocket handshake")
	}

	cancelled := make(chan struct{})
	go func() {
		_ = client.Cancel()
		close(cancelled)
	}()
	select {
	case <-cancelled:
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("Cancel blocked on the websocket handshake")
	}
	if playback.clears.Load() == 0 {
		t.Fatalf("expected playback buffer to be cleared")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected completion once the handshake gave up")
	}
}
