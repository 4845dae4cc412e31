package notify

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	subject  string
	data     []byte
	flushErr error
	closed   bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject = subject
	f.data = data
	return nil
}

func (f *fakeConn) FlushWithContext(context.Context) error { return f.flushErr }
func (f *fakeConn) Close()                                 { f.closed = true }

func TestNATSPublisher_Publish(t *testing.T) {
	fc := &fakeConn{}
	p := newPublisher(fc, "confexport.runs", nil)

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ev := RunEvent{RunID: "r1", RootID: "42", Mode: "flat", Status: "success", Pages: 3, Started: started, Finished: started}
	require.NoError(t, p.Publish(context.Background(), ev))

	assert.Equal(t, "confexport.runs", fc.subject)
	var got RunEvent
	require.NoError(t, json.Unmarshal(fc.data, &got))
	assert.Equal(t, ev.RunID, got.RunID)
	assert.Equal(t, 3, got.Pages)
	assert.NotContains(t, string(fc.data), `"error"`)

	require.NoError(t, p.Close())
	assert.True(t, fc.closed)
}

func TestNATSPublisher_FlushError(t *testing.T) {
	p := newPublisher(&fakeConn{flushErr: stderrors.New("timeout")}, "s", nil)
	err := p.Publish(context.Background(), RunEvent{RunID: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush")
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1", "s", nil)
	require.Error(t, err)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), RunEvent{}))
	assert.NoError(t, p.Close())
}
