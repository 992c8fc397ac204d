package livechat

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/onnwee/chatpulse/transcript"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource replays a fixed list of messages from its own goroutine, the
// way network sources deliver them.
type fakeSource struct {
	msgs []Message
	err  error
	// block keeps the stream open until ctx is cancelled.
	block bool
}

func (f *fakeSource) Platform() string { return "fake" }

func (f *fakeSource) Stream(ctx context.Context, _ string, emit func(Message) error) error {
	errc := make(chan error, 1)
	go func() {
		for _, m := range f.msgs {
			if err := emit(m); err != nil {
				errc <- err
				return
			}
		}
		if f.block {
			<-ctx.Done()
			errc <- ctx.Err()
			return
		}
		errc <- f.err
	}()
	return <-errc
}

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

type memStore struct {
	mu   sync.Mutex
	rows []string
}

func (s *memStore) InsertChatMessage(_ context.Context, sessionID, author, message string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, sessionID+"|"+author+"|"+message)
	return nil
}

type failingSink struct{}

func (failingSink) Write(context.Context, Message) error { return errors.New("disk full") }
func (failingSink) Close() error                         { return nil }

var t0 = time.Date(2023, 1, 1, 10, 0, 0, 0, time.UTC)

func sampleMessages() []Message {
	return []Message{
		{Timestamp: t0, Author: "Alice", Text: "hello world"},
		{Timestamp: t0.Add(10 * time.Second), Author: "Bob", Text: "WORLD: peace"},
		{Timestamp: t0.Add(20 * time.Second), Author: "Carol", Text: ""},
	}
}

func TestCaptureWritesTranscriptParserCanRead(t *testing.T) {
	var buf bytes.Buffer
	mem := &MemorySink{}
	n, err := Capture(context.Background(), &fakeSource{msgs: sampleMessages()}, "vid", NewFileSink(nopCloser{&buf}, "", nil), mem)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	lines, err := transcript.ReadLines(strings.NewReader(buf.String()))
	require.NoError(t, err)
	res, err := transcript.Aggregate(lines, transcript.AggregateOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.Equal(t, mem.Records(), res.Records)
	assert.Equal(t, "WORLD: peace", res.Records[1].Message)
}

func TestCaptureStoreSink(t *testing.T) {
	store := &memStore{}
	_, err := Capture(context.Background(), &fakeSource{msgs: sampleMessages()}, "vid", &StoreSink{Store: store, SessionID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1|Alice|hello world", "s1|Bob|WORLD: peace", "s1|Carol|"}, store.rows)
}

func TestCaptureSessionEndedIsClean(t *testing.T) {
	n, err := Capture(context.Background(), &fakeSource{msgs: sampleMessages()[:1], err: ErrSessionEnded}, "vid")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCaptureCancelIsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mem := &MemorySink{}
	done := make(chan error, 1)
	go func() {
		_, err := Capture(ctx, &fakeSource{msgs: sampleMessages(), block: true}, "vid", mem)
		done <- err
	}()
	require.Eventually(t, func() bool { return len(mem.Records()) == 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("capture did not stop after cancel")
	}
}

func TestCaptureSinkErrorStopsStream(t *testing.T) {
	n, err := Capture(context.Background(), &fakeSource{msgs: sampleMessages()}, "vid", failingSink{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0, n)
}

func TestCaptureSourceError(t *testing.T) {
	_, err := Capture(context.Background(), &fakeSource{err: errors.New("quota exceeded")}, "vid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fake capture")
}

func TestFileSinkLocation(t *testing.T) {
	var buf bytes.Buffer
	loc := time.FixedZone("UTC+1", 3600)
	s := NewFileSink(nopCloser{&buf}, "2006-01-02 15:04:05", loc)
	require.NoError(t, s.Write(context.Background(), Message{Timestamp: t0, Author: "a", Text: "b"}))
	require.NoError(t, s.Close())
	assert.Equal(t, "[2023-01-01 11:00:00] a: b\n", buf.String())
}
