// Package analysis hands image URLs to an external worker over Kafka and
// polls the worker's result topic.
package analysis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultRequestTopic = "image_analysis_requests"
	DefaultResultTopic  = "image_analysis_results"

	StatusDone       = "done"
	StatusProcessing = "processing"

	TextCodeUnavailable = "IMAGE_ANALYSIS_UNAVAILABLE"
)

var ErrUnavailable = errors.New("Image analysis unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeUnavailable).
	WithCode(http.StatusServiceUnavailable)

// Request is produced to the request topic
type Request struct {
	RequestID string `json:"request_id"`
	URL       string `json:"url"`
}

// Result is what the worker publishes once done
type Result struct {
	RequestID string          `json:"request_id"`
	People    json.RawMessage `json:"people"`
}

// Outcome is the answer to a result poll
type Outcome struct {
	Status string          `json:"status"`
	People json.RawMessage `json:"people,omitempty"`
}

// Writer is the subset of kafka.Writer the service needs
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Reader is the subset of kafka.Reader the service needs
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// ReaderFactory opens a reader for a consumer group
type ReaderFactory func(groupID string) Reader

// Logger matches the key/value logger used across the service
type Logger interface {
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Config addresses the brokers and tunes polling
type Config struct {
	Brokers      []string
	RequestTopic string
	ResultTopic  string
	// PollAttempts and PollInterval bound how long Result waits
	PollAttempts int
	PollInterval time.Duration
	WriteTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.RequestTopic == "" {
		c.RequestTopic = DefaultRequestTopic
	}
	if c.ResultTopic == "" {
		c.ResultTopic = DefaultResultTopic
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = 50
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	return c
}

// Service produces analysis requests and reads results
type Service struct {
	cfg       Config
	writer    Writer
	newReader ReaderFactory
	newID     func() string
	logger    Logger
}

// Option configures a Service
type Option func(*Service)

// WithWriter replaces the Kafka writer
func WithWriter(w Writer) Option {
	return func(s *Service) { s.writer = w }
}

// WithReaderFactory replaces how result readers are opened
func WithReaderFactory(f ReaderFactory) Option {
	return func(s *Service) { s.newReader = f }
}

// WithIDGenerator replaces the request id source
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

func WithLogger(l Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService builds a service backed by kafka-go unless options swap the
// transport.
func NewService(cfg Config, opts ...Option) *Service {
	cfg = cfg.withDefaults()

	s := &Service{
		cfg:    cfg,
		newID:  func() string { return uuid.NewString() },
		logger: nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.writer == nil {
		s.writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.RequestTopic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
		}
	}

	if s.newReader == nil {
		s.newReader = func(groupID string) Reader {
			return kafka.NewReader(kafka.ReaderConfig{
				Brokers:     cfg.Brokers,
				Topic:       cfg.ResultTopic,
				GroupID:     groupID,
				StartOffset: kafka.FirstOffset,
				MinBytes:    1,
				MaxBytes:    10e6,
				MaxWait:     cfg.PollInterval,
			})
		}
	}

	return s
}

// Submit produces a request and returns its id
func (s *Service) Submit(ctx context.Context, url string) (string, error) {
	req := Request{RequestID: s.newID(), URL: url}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to encode analysis request")
	}

	writeCtx, cancel := context.WithTimeout(ctx, s.cfg.WriteTimeout)
	defer cancel()

	err = s.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(req.RequestID),
		Value: payload,
	})
	if err != nil {
		s.logger.Warn("image analysis produce failed", "request_id", req.RequestID, "error", err)
		unavailable := ErrUnavailable.Clone()
		unavailable.Source = err
		return "", unavailable
	}

	return req.RequestID, nil
}

// Result reads the result topic from the start with a throwaway consumer
// group. It returns StatusProcessing when nothing matches in time.
func (s *Service) Result(ctx context.Context, requestID string) (*Outcome, error) {
	reader := s.newReader("result-reader-" + s.newID())
	defer reader.Close()

	for i := 0; i < s.cfg.PollAttempts; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		msg, err := s.poll(ctx, reader)
		if err != nil || len(msg.Value) == 0 {
			continue
		}

		var res Result
		if err := json.Unmarshal(msg.Value, &res); err != nil {
			s.logger.Debug("skipping undecodable analysis result", "offset", msg.Offset)
			continue
		}

		if res.RequestID == requestID {
			return &Outcome{Status: StatusDone, People: res.People}, nil
		}
	}

	return &Outcome{Status: StatusProcessing}, nil
}

func (s *Service) poll(ctx context.Context, reader Reader) (kafka.Message, error) {
	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.PollInterval)
	defer cancel()

	msg, err := reader.ReadMessage(pollCtx)
	if err != nil && !stderrors.Is(err, context.DeadlineExceeded) {
		s.logger.Debug("analysis result poll failed", "error", err)
	}
	return msg, err
}

// Close releases the writer
func (s *Service) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Debug(string, ...any) {}
