package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recorder struct {
	resets   int
	comments int
	err      error
}

func (r *recorder) NotifyPasswordReset(ctx context.Context, n ResetNotice) error {
	r.resets++
	return r.err
}

func (r *recorder) NotifyComment(ctx context.Context, n CommentNotice) error {
	r.comments++
	return r.err
}

func TestFanout_DeliversToAllAndJoinsErrors(t *testing.T) {
	ok := &recorder{}
	bad := &recorder{err: errors.New("broker unavailable")}
	last := &recorder{}
	f := Fanout{ok, bad, last}

	err := f.NotifyPasswordReset(context.Background(), ResetNotice{AccountID: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.Equal(t, 1, ok.resets)
	assert.Equal(t, 1, last.resets, "a failure does not short-circuit")

	err = f.NotifyComment(context.Background(), CommentNotice{PostID: "p"})
	require.Error(t, err)
	assert.Equal(t, 1, last.comments)

	assert.NoError(t, Fanout{ok, last}.NotifyComment(context.Background(), CommentNotice{}))
	assert.NoError(t, Fanout{}.NotifyPasswordReset(context.Background(), ResetNotice{}))
}

func TestBestEffort_SwallowsAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	bad := &recorder{err: errors.New("db down")}
	n := BestEffort(bad, zap.New(core).Sugar())

	assert.NoError(t, n.NotifyPasswordReset(context.Background(), ResetNotice{AccountID: "1"}))
	assert.NoError(t, n.NotifyComment(context.Background(), CommentNotice{PostID: "p"}))
	assert.Equal(t, 1, bad.resets)
	assert.Equal(t, 1, bad.comments)
	assert.Equal(t, 2, logs.Len())
}

func TestKafkaNotifier_PublishesComment(t *testing.T) {
	w := &fakeWriter{}
	n := newKafkaNotifier(w, clockwork.NewFakeClock())

	notice := CommentNotice{PostID: "p1", PostAuthor: "a1", CommentID: "c1", CommenterID: "a2", Excerpt: "nice"}
	require.NoError(t, n.NotifyComment(context.Background(), notice))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, EventPostCommented, string(w.msgs[0].Key))
	var got CommentNotice
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, notice.PostID, got.PostID)
	assert.Equal(t, notice.CommenterID, got.CommenterID)
}

func TestLogNotifier_Comment(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	n := NewLogNotifier(zap.New(core).Sugar())

	require.NoError(t, n.NotifyComment(context.Background(), CommentNotice{PostID: "p1", CommentID: "c1"}))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "p1", logs.All()[0].ContextMap()["post_id"])
}
