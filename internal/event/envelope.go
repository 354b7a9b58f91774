package event

import (
	"time"
)

// Type discriminator for outbound event payloads
type Type int32

const (
	TypeUnknown Type = iota
	TypeTokenCreated
	TypeTradeExecuted
	TypeTokenGraduated
	TypeCompetitionCreated
	TypeCompetitionUpdated
	TypeCompetitionCancelled
	TypeCompetitionFinalized
	TypeParticipantRegistered
	TypeTokenRegistered
	TypePrizeClaimed
	TypeFeeRoutedToCompetition
	TypePrizePoolContributed
	TypeCompetitionDrained
	TypeConfigUpdated
)

// Envelope wraps every observable effect in the event log
type Envelope struct {
	// Global monotonic sequence assigned by the operation core
	Sequence int64

	// Stable idempotency key of the triggering operation
	IdempotencyKey string

	// Event type discriminator
	EventType Type

	// Token context (nil for competition-only events)
	TokenID *string

	// Versioned input timestamp (NOT wall-clock)
	Timestamp time.Time

	// JSON-encoded event-specific payload
	Payload []byte

	// SHA-256 of state AFTER applying the triggering operation
	StateHash [32]byte

	// Previous event's state hash (chain integrity)
	PrevHash [32]byte
}

// Event is the interface all outbound payloads implement
type Event interface {
	// EventType returns the discriminator
	EventType() Type

	// TokenID returns the token context (nil for competition-only events)
	TokenID() *string
}

func (t Type) String() string {
	switch t {
	case TypeTokenCreated:
		return "TokenCreated"
	case TypeTradeExecuted:
		return "TradeExecuted"
	case TypeTokenGraduated:
		return "TokenGraduated"
	case TypeCompetitionCreated:
		return "CompetitionCreated"
	case TypeCompetitionUpdated:
		return "CompetitionUpdated"
	case TypeCompetitionCancelled:
		return "CompetitionCancelled"
	case TypeCompetitionFinalized:
		return "CompetitionFinalized"
	case TypeParticipantRegistered:
		return "ParticipantRegistered"
	case TypeTokenRegistered:
		return "TokenRegistered"
	case TypePrizeClaimed:
		return "PrizeClaimed"
	case TypeFeeRoutedToCompetition:
		return "FeeRoutedToCompetition"
	case TypePrizePoolContributed:
		return "PrizePoolContributed"
	case TypeCompetitionDrained:
		return "CompetitionDrained"
	case TypeConfigUpdated:
		return "ConfigUpdated"
	default:
		return "Unknown"
	}
}
