package analysis_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-movielens/analysis"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockWriter) Close() error {
	return m.Called().Error(0)
}

type sliceReader struct {
	msgs   []kafka.Message
	closed bool
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *sliceReader) Close() error {
	r.closed = true
	return nil
}

func fixedID(id string) analysis.Option {
	return analysis.WithIDGenerator(func() string { return id })
}

func TestSubmitProducesRequest(t *testing.T) {
	writer := new(MockWriter)
	writer.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 {
			return false
		}
		var req analysis.Request
		if err := json.Unmarshal(msgs[0].Value, &req); err != nil {
			return false
		}
		return req.RequestID == "req-1" && req.URL == "http://img/1.png"
	})).Return(nil)

	svc := analysis.NewService(analysis.Config{}, analysis.WithWriter(writer), fixedID("req-1"))

	id, err := svc.Submit(context.Background(), "http://img/1.png")
	require.NoError(t, err)
	assert.Equal(t, "req-1", id)
	writer.AssertExpectations(t)
}

func TestSubmitBrokerFailureIsUnavailable(t *testing.T) {
	writer := new(MockWriter)
	writer.On("WriteMessages", mock.Anything, mock.Anything).Return(stderrors.New("dial tcp: refused"))

	svc := analysis.NewService(analysis.Config{}, analysis.WithWriter(writer))

	_, err := svc.Submit(context.Background(), "http://img/1.png")
	require.Error(t, err)

	var rich *errors.Error
	require.True(t, errors.As(err, &rich))
	assert.Equal(t, 503, rich.Code)
	assert.Equal(t, "Image analysis unavailable", rich.Message)
}

func TestResult(t *testing.T) {
	cfg := analysis.Config{PollAttempts: 5, PollInterval: 10 * time.Millisecond}

	t.Run("returns people for the matching request", func(t *testing.T) {
		reader := &sliceReader{msgs: []kafka.Message{
			{Value: []byte("not json")},
			{Value: []byte(`{"request_id":"other","people":[]}`)},
			{Value: []byte(`{"request_id":"abc","people":[{"name":"Ada"}]}`)},
		}}
		var group string
		svc := analysis.NewService(cfg,
			analysis.WithWriter(new(MockWriter)),
			analysis.WithReaderFactory(func(groupID string) analysis.Reader {
				group = groupID
				return reader
			}),
		)

		out, err := svc.Result(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, analysis.StatusDone, out.Status)
		assert.JSONEq(t, `[{"name":"Ada"}]`, string(out.People))
		assert.Contains(t, group, "result-reader-")
		assert.True(t, reader.closed)
	})

	t.Run("processing when nothing matches", func(t *testing.T) {
		reader := &sliceReader{msgs: []kafka.Message{
			{Value: []byte(`{"request_id":"other","people":[]}`)},
		}}
		svc := analysis.NewService(cfg,
			analysis.WithWriter(new(MockWriter)),
			analysis.WithReaderFactory(func(string) analysis.Reader { return reader }),
		)

		out, err := svc.Result(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, analysis.StatusProcessing, out.Status)
		assert.Nil(t, out.People)
	})
}
