package graduation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// DefaultVenueSubject is the request/reply subject the external venue
// service listens on.
const DefaultVenueSubject = "launch.venue.pool.create"

// NATSVenue calls the external venue over NATS request/reply. The venue
// service owns the actual liquidity pool; the core only needs the pool
// identifier back.
type NATSVenue struct {
	nc      *nats.Conn
	subject string
}

func NewNATSVenue(nc *nats.Conn, subject string) *NATSVenue {
	if subject == "" {
		subject = DefaultVenueSubject
	}
	return &NATSVenue{nc: nc, subject: subject}
}

type venueCreateRequest struct {
	BaseAmount        uint64 `json:"base_amount"`
	TokenAmount       uint64 `json:"token_amount"`
	InitialPriceRatio uint64 `json:"initial_price_ratio"`
}

type venueCreateReply struct {
	PoolID string `json:"pool_id"`
	Error  string `json:"error,omitempty"`
}

func (v *NATSVenue) CreatePool(ctx context.Context, baseAmount, tokenAmount, initialPriceRatio uint64) (string, error) {
	req, err := json.Marshal(venueCreateRequest{
		BaseAmount:        baseAmount,
		TokenAmount:       tokenAmount,
		InitialPriceRatio: initialPriceRatio,
	})
	if err != nil {
		return "", fmt.Errorf("marshal venue request: %w", err)
	}

	msg, err := v.nc.RequestWithContext(ctx, v.subject, req)
	if err != nil {
		return "", fmt.Errorf("venue request: %w", err)
	}

	var reply venueCreateReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return "", fmt.Errorf("unmarshal venue reply: %w", err)
	}
	if reply.Error != "" {
		return "", fmt.Errorf("venue rejected pool: %s", reply.Error)
	}
	if reply.PoolID == "" {
		return "", fmt.Errorf("venue reply missing pool_id")
	}
	return reply.PoolID, nil
}

// LocalVenue is the development venue: it accepts every handoff and
// fabricates a pool identifier. Used when no venue service is running.
type LocalVenue struct {
	counter atomic.Uint64
}

func NewLocalVenue() *LocalVenue {
	return &LocalVenue{}
}

func (v *LocalVenue) CreatePool(_ context.Context, _, _, _ uint64) (string, error) {
	n := v.counter.Add(1)
	return fmt.Sprintf("local-pool-%d-%s", n, uuid.New().String()[:8]), nil
}
