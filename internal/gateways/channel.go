package gateway

import (
	"context"
	"fmt"

	"github.com/dakar-humidity/alert-gateway/internal/model"
)

// Channel delivers a message body to a recipient through one provider.
// Send makes exactly one dispatch attempt and returns the provider reference.
type Channel interface {
	Type() model.NotificationType
	// Validate reports missing configuration with model.ErrConfiguration.
	Validate() error
	Send(ctx context.Context, body, recipient string) (string, error)
}

// Channels maps a notification type to its channel.
type Channels map[model.NotificationType]Channel

func NewChannels(channels ...Channel) Channels {
	c := make(Channels, len(channels))
	for _, ch := range channels {
		c[ch.Type()] = ch
	}
	return c
}

// Resolve returns the channel for t. Known types without an implementation
// fail with model.ErrUnsupportedChannel.
func (c Channels) Resolve(t model.NotificationType) (Channel, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown notification type %q", model.ErrValidation, t)
	}
	ch, ok := c[t]
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnsupportedChannel, t)
	}
	return ch, nil
}
