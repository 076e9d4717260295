package feedback

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/command"
	"github.com/ayusman/mudra/internal/logger"
)

// TopicCommands carries every completed command event.
const TopicCommands = "commands"

// HandlerFunc consumes one event from the bus.
type HandlerFunc func(ctx context.Context, e command.Event) error

// Bus is the in-process event bus between the dispatcher and its consumers.
// It implements command.Sink.
type Bus struct {
	pubSub *gochannel.GoChannel
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewBus creates a Bus. A nil logger is a no-op.
func NewBus(l *zap.Logger) *Bus {
	if l == nil {
		l = zap.NewNop()
	}
	return &Bus{
		pubSub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: 64},
			logger.Watermill(l),
		),
		logger: l,
	}
}

// OnCommand publishes e. It implements command.Sink.
func (b *Bus) OnCommand(e command.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		b.logger.Error("marshal command event", zap.Error(err))
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubSub.Publish(TopicCommands, msg); err != nil {
		b.logger.Error("publish command event", zap.String("action", e.Action), zap.Error(err))
	}
}

// Subscribe runs h for every event published after the call, until ctx is
// done or the bus is closed. Handler errors are logged; the message is
// acknowledged either way so a broken consumer cannot stall the bus.
func (b *Bus) Subscribe(ctx context.Context, name string, h HandlerFunc) error {
	messages, err := b.pubSub.Subscribe(ctx, TopicCommands)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", name, err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range messages {
			b.process(msg, name, h)
		}
	}()
	return nil
}

func (b *Bus) process(msg *message.Message, name string, h HandlerFunc) {
	defer msg.Ack()

	var e command.Event
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		b.logger.Error("invalid command event", zap.String("subscriber", name), zap.Error(err))
		return
	}

	if err := h(msg.Context(), e); err != nil {
		b.logger.Warn("command event handler failed",
			zap.String("subscriber", name),
			zap.String("action", e.Action),
			zap.Error(err),
		)
	}
}

// Close stops the bus and waits for subscribers to drain.
func (b *Bus) Close() error {
	err := b.pubSub.Close()
	b.wg.Wait()
	return err
}
