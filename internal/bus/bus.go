package bus

import (
	"fmt"

	"github.com/leadfactory/leadscore/internal/domain"
)

// New creates a new event bus based on configuration.
// Single-node deployments use the in-process ChannelBus; multi-service
// deployments use NATS.
func New(cfg domain.EventBusConfig) (domain.EventBus, error) {
	switch cfg.Type {
	case "channel":
		return NewChannelBus(cfg.ChannelBufferSize), nil

	case "nats":
		return NewNATSBus(cfg)

	default:
		return nil, fmt.Errorf("unsupported event bus type: %s", cfg.Type)
	}
}
