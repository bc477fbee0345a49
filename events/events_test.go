package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Host: "127.0.0.1", Port: -1})
	require.NoError(t, err)
	srv.Start()
	t.Cleanup(srv.Shutdown)
	require.True(t, srv.ReadyForConnections(5*time.Second), "embedded NATS not ready")
	return srv.ClientURL()
}

func TestPublishersImplementInterface(t *testing.T) {
	var _ Publisher = (*NoopPublisher)(nil)
	var _ Publisher = (*NATSPublisher)(nil)
	var _ Publisher = (*Recorder)(nil)
}

func TestNew_WithoutURLIsNoop(t *testing.T) {
	p, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &NoopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), TopicTestCompleted, TestCompleted{}))
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Publish(context.Background(), TopicDisputeResolved, DisputeResolved{DisputeID: 1}))
	evs := r.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, TopicDisputeResolved, evs[0].Topic)
}

func TestNATSPublisher_Publish(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	require.NoError(t, err)
	defer pub.Close()

	nc, err := nats.Connect(url)
	require.NoError(t, err)
	defer nc.Close()

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(TopicTestCompleted, ch)
	require.NoError(t, err)
	defer sub.Unsubscribe() //nolint:errcheck
	require.NoError(t, nc.Flush())

	event := TestCompleted{TestID: 7, UserID: 3, Score: 18, TotalQuestions: 20}
	require.NoError(t, pub.Publish(context.Background(), TopicTestCompleted, event))

	select {
	case msg := <-ch:
		var got TestCompleted
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, int64(7), got.TestID)
		assert.Equal(t, 18, got.Score)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestNATSPublisher_CanceledContext(t *testing.T) {
	url := startTestNATS(t)
	pub, err := NewNATSPublisher(url)
	require.NoError(t, err)
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pub.Publish(ctx, TopicArticlesChanged, ArticlesChanged{}), context.Canceled)
}
