package op

import (
	"time"

	"github.com/google/uuid"

	"LaunchCore/internal/engine"
)

// Type discriminator for operations entering the core
type Type int32

const (
	TypeUnknown Type = iota
	TypeCreateToken
	TypeBuy
	TypeSell
	TypeUpdateConfig
	TypeCreateCompetition
	TypeUpdateCompetitionSplits
	TypeRegisterParticipant
	TypeRegisterToken
	TypeContributePrizePool
	TypeFinalizeCompetition
	TypeClaimPrize
	TypeCancelCompetition
	TypeDrainCompetition
)

func (t Type) String() string {
	switch t {
	case TypeCreateToken:
		return "CreateToken"
	case TypeBuy:
		return "Buy"
	case TypeSell:
		return "Sell"
	case TypeUpdateConfig:
		return "UpdateConfig"
	case TypeCreateCompetition:
		return "CreateCompetition"
	case TypeUpdateCompetitionSplits:
		return "UpdateCompetitionSplits"
	case TypeRegisterParticipant:
		return "RegisterParticipant"
	case TypeRegisterToken:
		return "RegisterToken"
	case TypeContributePrizePool:
		return "ContributePrizePool"
	case TypeFinalizeCompetition:
		return "FinalizeCompetition"
	case TypeClaimPrize:
		return "ClaimPrize"
	case TypeCancelCompetition:
		return "CancelCompetition"
	case TypeDrainCompetition:
		return "DrainCompetition"
	default:
		return "Unknown"
	}
}

// Operation is the interface every core input must implement. Timestamps
// are versioned inputs carried on the operation itself; the core never
// reads the wall clock.
type Operation interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// OpType returns the discriminator
	OpType() Type

	// TokenID returns the token context (nil for competition/config ops)
	TokenID() *string

	// OccurredAt returns the versioned input timestamp
	OccurredAt() time.Time
}

// CreateToken launches a new pool.
// Idempotency key: op_id.
type CreateToken struct {
	OpID        uuid.UUID
	Token       string
	Creator     string
	Name        string
	Symbol      string
	Description string
	ImageURI    string
	Payment     uint64
	Timestamp   time.Time
}

func (o *CreateToken) IdempotencyKey() string { return o.OpID.String() }
func (o *CreateToken) OpType() Type           { return TypeCreateToken }
func (o *CreateToken) OccurredAt() time.Time  { return o.Timestamp }

func (o *CreateToken) TokenID() *string {
	t := o.Token
	return &t
}

// Buy purchases tokens against the curve.
type Buy struct {
	OpID      uuid.UUID
	Token     string
	Trader    string
	BaseIn    uint64
	Payment   uint64
	Timestamp time.Time
}

func (o *Buy) IdempotencyKey() string { return o.OpID.String() }
func (o *Buy) OpType() Type           { return TypeBuy }
func (o *Buy) OccurredAt() time.Time  { return o.Timestamp }

func (o *Buy) TokenID() *string {
	t := o.Token
	return &t
}

// Sell returns tokens to the curve for base currency.
type Sell struct {
	OpID      uuid.UUID
	Token     string
	Trader    string
	TokenIn   uint64
	Timestamp time.Time
}

func (o *Sell) IdempotencyKey() string { return o.OpID.String() }
func (o *Sell) OpType() Type           { return TypeSell }
func (o *Sell) OccurredAt() time.Time  { return o.Timestamp }

func (o *Sell) TokenID() *string {
	t := o.Token
	return &t
}

// UpdateConfig replaces the platform configuration.
type UpdateConfig struct {
	OpID      uuid.UUID
	Caller    string
	Next      engine.Config
	Timestamp time.Time
}

func (o *UpdateConfig) IdempotencyKey() string { return o.OpID.String() }
func (o *UpdateConfig) OpType() Type           { return TypeUpdateConfig }
func (o *UpdateConfig) TokenID() *string       { return nil }
func (o *UpdateConfig) OccurredAt() time.Time  { return o.Timestamp }

// CreateCompetition opens a battle-royale round.
type CreateCompetition struct {
	OpID          uuid.UUID
	CompetitionID string
	Caller        string
	Name          string
	Description   string
	StartTime     time.Time
	EndTime       time.Time

	ParticipationFee uint64
	PlatformFeeBps   uint32
	FirstBps         uint32
	SecondBps        uint32
	ThirdBps         uint32

	MaxTokensPerParticipant int
	AllowMidRegistration    bool

	Timestamp time.Time
}

func (o *CreateCompetition) IdempotencyKey() string { return o.OpID.String() }
func (o *CreateCompetition) OpType() Type           { return TypeCreateCompetition }
func (o *CreateCompetition) TokenID() *string       { return nil }
func (o *CreateCompetition) OccurredAt() time.Time  { return o.Timestamp }

// UpdateCompetitionSplits changes the place splits of a live round.
type UpdateCompetitionSplits struct {
	OpID          uuid.UUID
	CompetitionID string
	Caller        string
	FirstBps      uint32
	SecondBps     uint32
	ThirdBps      uint32
	Timestamp     time.Time
}

func (o *UpdateCompetitionSplits) IdempotencyKey() string { return o.OpID.String() }
func (o *UpdateCompetitionSplits) OpType() Type           { return TypeUpdateCompetitionSplits }
func (o *UpdateCompetitionSplits) TokenID() *string       { return nil }
func (o *UpdateCompetitionSplits) OccurredAt() time.Time  { return o.Timestamp }

// RegisterParticipant pays the entry fee into a competition.
type RegisterParticipant struct {
	OpID          uuid.UUID
	CompetitionID string
	Participant   string
	Payment       uint64
	Timestamp     time.Time
}

func (o *RegisterParticipant) IdempotencyKey() string { return o.OpID.String() }
func (o *RegisterParticipant) OpType() Type           { return TypeRegisterParticipant }
func (o *RegisterParticipant) TokenID() *string       { return nil }
func (o *RegisterParticipant) OccurredAt() time.Time  { return o.Timestamp }

// RegisterToken enters a launched token into a competition.
type RegisterToken struct {
	OpID          uuid.UUID
	CompetitionID string
	Participant   string
	Token         string
	Timestamp     time.Time
}

func (o *RegisterToken) IdempotencyKey() string { return o.OpID.String() }
func (o *RegisterToken) OpType() Type           { return TypeRegisterToken }
func (o *RegisterToken) OccurredAt() time.Time  { return o.Timestamp }

func (o *RegisterToken) TokenID() *string {
	t := o.Token
	return &t
}

// ContributePrizePool tops up a prize pool (sponsorships).
type ContributePrizePool struct {
	OpID          uuid.UUID
	CompetitionID string
	Contributor   string
	Amount        uint64
	Timestamp     time.Time
}

func (o *ContributePrizePool) IdempotencyKey() string { return o.OpID.String() }
func (o *ContributePrizePool) OpType() Type           { return TypeContributePrizePool }
func (o *ContributePrizePool) TokenID() *string       { return nil }
func (o *ContributePrizePool) OccurredAt() time.Time  { return o.Timestamp }

// FinalizeCompetition names the three winning tokens in rank order.
type FinalizeCompetition struct {
	OpID          uuid.UUID
	CompetitionID string
	Caller        string
	First         string
	Second        string
	Third         string
	Timestamp     time.Time
}

func (o *FinalizeCompetition) IdempotencyKey() string { return o.OpID.String() }
func (o *FinalizeCompetition) OpType() Type           { return TypeFinalizeCompetition }
func (o *FinalizeCompetition) TokenID() *string       { return nil }
func (o *FinalizeCompetition) OccurredAt() time.Time  { return o.Timestamp }

// ClaimPrize pays out one placed winner.
type ClaimPrize struct {
	OpID          uuid.UUID
	CompetitionID string
	Caller        string
	Timestamp     time.Time
}

func (o *ClaimPrize) IdempotencyKey() string { return o.OpID.String() }
func (o *ClaimPrize) OpType() Type           { return TypeClaimPrize }
func (o *ClaimPrize) TokenID() *string       { return nil }
func (o *ClaimPrize) OccurredAt() time.Time  { return o.Timestamp }

// CancelCompetition aborts a round before settlement.
type CancelCompetition struct {
	OpID          uuid.UUID
	CompetitionID string
	Caller        string
	Reason        string
	Timestamp     time.Time
}

func (o *CancelCompetition) IdempotencyKey() string { return o.OpID.String() }
func (o *CancelCompetition) OpType() Type           { return TypeCancelCompetition }
func (o *CancelCompetition) TokenID() *string       { return nil }
func (o *CancelCompetition) OccurredAt() time.Time  { return o.Timestamp }

// DrainCompetition sweeps residual funds of a terminal round.
type DrainCompetition struct {
	OpID          uuid.UUID
	CompetitionID string
	Caller        string
	Timestamp     time.Time
}

func (o *DrainCompetition) IdempotencyKey() string { return o.OpID.String() }
func (o *DrainCompetition) OpType() Type           { return TypeDrainCompetition }
func (o *DrainCompetition) TokenID() *string       { return nil }
func (o *DrainCompetition) OccurredAt() time.Time  { return o.Timestamp }
