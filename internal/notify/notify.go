// Package notify broadcasts session lifecycle events to observers such as the
// HTTP event stream or a CLI waiting on a run. Events travel over watermill,
// either in-process or through Redis streams when several processes share a
// data directory.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"

	"github.com/danielolaszy/attractor/internal/logging"
)

// Topic carries every session event.
const Topic = "attractor.sessions"

// Event names.
const (
	EventStarted   = "session.started"
	EventCompleted = "session.completed"
	EventFailed    = "session.failed"
)

// Started is the payload of session.started.
type Started struct {
	IssueNumber int64  `json:"issueNumber"`
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
}

// Completed is the payload of session.completed. CommentID is zero when the
// result could not be written back.
type Completed struct {
	IssueNumber int64  `json:"issueNumber"`
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	CommentID   int64  `json:"commentId"`
}

// Failed is the payload of session.failed.
type Failed struct {
	IssueNumber int64  `json:"issueNumber"`
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	Error       string `json:"error"`
}

// Event is the envelope published on Topic.
type Event struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// Notifier publishes and subscribes to session events.
type Notifier struct {
	publisher message.Publisher
	// subscribe opens one subscription to Topic. release runs once the
	// subscription has ended.
	subscribe func(ctx context.Context) (messages <-chan *message.Message, release func(), err error)
	closers   []func() error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newNotifier(pub message.Publisher, subscribe func(context.Context) (<-chan *message.Message, func(), error), closers ...func() error) *Notifier {
	ctx, cancel := context.WithCancel(context.Background())
	return &Notifier{publisher: pub, subscribe: subscribe, closers: closers, ctx: ctx, cancel: cancel}
}

// Logger adapts the application logger for watermill.
func Logger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.GetLogger())
}

// NewInMemory returns a notifier whose events stay inside this process.
// Events published with no subscriber are dropped.
func NewInMemory() *Notifier {
	ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, Logger())
	subscribe := func(ctx context.Context) (<-chan *message.Message, func(), error) {
		messages, err := ch.Subscribe(ctx, Topic)
		return messages, func() {}, err
	}
	return newNotifier(ch, subscribe, ch.Close)
}

// NewRedis returns a notifier backed by Redis streams. Each subscription reads
// through its own consumer group, named after consumerGroup, so every
// subscriber sees every event published after it subscribed.
func NewRedis(client redis.UniversalClient, consumerGroup string) (*Notifier, error) {
	logger := Logger()

	pub, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client:     client,
		Marshaller: redisstream.DefaultMarshallerUnmarshaller{},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}

	subscribe := func(ctx context.Context) (<-chan *message.Message, func(), error) {
		group := consumerGroup + "-" + watermill.NewShortUUID()
		// The subscriber is never closed: closing it would close the shared
		// client. Cancelling ctx stops its consumers.
		sub, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:                        client,
			Unmarshaller:                  redisstream.DefaultMarshallerUnmarshaller{},
			ConsumerGroup:                 group,
			OldestId:                      "$",
			DisableIndefiniteInitialBlock: true,
		}, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis subscriber: %w", err)
		}
		messages, err := sub.Subscribe(ctx, Topic)
		if err != nil {
			return nil, nil, err
		}
		release := func() {
			if err := client.XGroupDestroy(context.Background(), Topic, group).Err(); err != nil {
				logging.Debug("failed to remove consumer group", "group", group, "error", err)
			}
		}
		return messages, release, nil
	}

	return newNotifier(pub, subscribe, pub.Close), nil
}

// NewRedisFromURL connects to the Redis server at url, e.g.
// redis://localhost:6379/0.
func NewRedisFromURL(url, consumerGroup string) (*Notifier, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	n, err := NewRedis(client, consumerGroup)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	n.closers = append(n.closers, client.Close)
	return n, nil
}

// Publish sends one event.
func (n *Notifier) Publish(ctx context.Context, name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", name, err)
	}
	body, err := json.Marshal(Event{Name: name, Data: payload})
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.SetContext(ctx)
	if err := n.publisher.Publish(Topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", name, err)
	}
	logging.Debug("published event", "event", name)
	return nil
}

// Subscribe streams events until ctx is cancelled or the notifier is
// closed. Messages that do not decode are acknowledged and skipped.
func (n *Notifier) Subscribe(ctx context.Context) (<-chan Event, error) {
	if n.ctx.Err() != nil {
		return nil, errors.New("notifier is closed")
	}

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(n.ctx, cancel)

	messages, release, err := n.subscribe(ctx)
	if err != nil {
		stop()
		cancel()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Topic, err)
	}

	out := make(chan Event)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer release()
		defer cancel()
		defer stop()
		defer close(out)
		for msg := range messages {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				logging.Warn("dropping undecodable event", "uuid", msg.UUID, "error", err)
				msg.Ack()
				continue
			}
			select {
			case out <- event:
				msg.Ack()
			case <-ctx.Done():
				msg.Nack()
				return
			}
		}
	}()
	return out, nil
}

// Close ends every subscription and releases the publisher and connections.
func (n *Notifier) Close() error {
	n.cancel()
	n.wg.Wait()

	var first error
	for _, c := range n.closers {
		if err := c(); err != nil && !errors.Is(err, redis.ErrClosed) && first == nil {
			first = err
		}
	}
	return first
}
