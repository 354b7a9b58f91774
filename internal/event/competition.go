package event

import "time"

// CompetitionCreated announces a new battle-royale round. It carries the
// full round parameters so the event log alone can rebuild the state.
type CompetitionCreated struct {
	CompetitionID           string    `json:"competition_id"`
	Admin                   string    `json:"admin"`
	Name                    string    `json:"name"`
	Description             string    `json:"description,omitempty"`
	StartTime               time.Time `json:"start_time"`
	EndTime                 time.Time `json:"end_time"`
	ParticipationFee        uint64    `json:"participation_fee"`
	PlatformFeeBps          uint32    `json:"platform_fee_bps"`
	FirstBps                uint32    `json:"first_bps"`
	SecondBps               uint32    `json:"second_bps"`
	ThirdBps                uint32    `json:"third_bps"`
	MaxTokensPerParticipant int       `json:"max_tokens_per_participant"`
	AllowMidRegistration    bool      `json:"allow_mid_registration"`
	Timestamp               time.Time `json:"timestamp"`
}

func (e *CompetitionCreated) EventType() Type  { return TypeCompetitionCreated }
func (e *CompetitionCreated) TokenID() *string { return nil }

// CompetitionUpdated records an admin change to the place splits.
type CompetitionUpdated struct {
	CompetitionID string    `json:"competition_id"`
	FirstBps      uint32    `json:"first_bps"`
	SecondBps     uint32    `json:"second_bps"`
	ThirdBps      uint32    `json:"third_bps"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e *CompetitionUpdated) EventType() Type  { return TypeCompetitionUpdated }
func (e *CompetitionUpdated) TokenID() *string { return nil }

// CompetitionCancelled is terminal; only the admin drain may follow.
type CompetitionCancelled struct {
	CompetitionID string    `json:"competition_id"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e *CompetitionCancelled) EventType() Type  { return TypeCompetitionCancelled }
func (e *CompetitionCancelled) TokenID() *string { return nil }

// PlacedWinner is one entry of a finalization result.
type PlacedWinner struct {
	Rank    int    `json:"rank"`
	Address string `json:"address"`
	Token   string `json:"token"`
	Prize   uint64 `json:"prize"`
}

// CompetitionFinalized carries the full winner set and the distributed pool.
type CompetitionFinalized struct {
	CompetitionID string         `json:"competition_id"`
	PrizePool     uint64         `json:"prize_pool"`
	Winners       []PlacedWinner `json:"winners"`
	Timestamp     time.Time      `json:"timestamp"`
}

func (e *CompetitionFinalized) EventType() Type  { return TypeCompetitionFinalized }
func (e *CompetitionFinalized) TokenID() *string { return nil }

// ParticipantRegistered records a paid entry into a competition.
type ParticipantRegistered struct {
	CompetitionID string    `json:"competition_id"`
	Participant   string    `json:"participant"`
	FeePaid       uint64    `json:"fee_paid"`
	ToPrizePool   uint64    `json:"to_prize_pool"`
	ToTreasury    uint64    `json:"to_treasury"`
	Refund        uint64    `json:"refund"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e *ParticipantRegistered) EventType() Type  { return TypeParticipantRegistered }
func (e *ParticipantRegistered) TokenID() *string { return nil }

// TokenRegistered binds a token to a participant's competition entry.
type TokenRegistered struct {
	CompetitionID string    `json:"competition_id"`
	Participant   string    `json:"participant"`
	Token         string    `json:"token"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e *TokenRegistered) EventType() Type { return TypeTokenRegistered }

func (e *TokenRegistered) TokenID() *string {
	t := e.Token
	return &t
}

// PrizeClaimed is emitted once per winner.
type PrizeClaimed struct {
	CompetitionID string    `json:"competition_id"`
	Winner        string    `json:"winner"`
	Rank          int       `json:"rank"`
	Amount        uint64    `json:"amount"`
	FullySettled  bool      `json:"fully_settled"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e *PrizeClaimed) EventType() Type  { return TypePrizeClaimed }
func (e *PrizeClaimed) TokenID() *string { return nil }

// PrizePoolContributed records a voluntary top-up of a prize pool.
type PrizePoolContributed struct {
	CompetitionID string    `json:"competition_id"`
	Contributor   string    `json:"contributor"`
	Amount        uint64    `json:"amount"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e *PrizePoolContributed) EventType() Type  { return TypePrizePoolContributed }
func (e *PrizePoolContributed) TokenID() *string { return nil }

// CompetitionDrained records an admin sweep of residual funds.
type CompetitionDrained struct {
	CompetitionID string    `json:"competition_id"`
	Amount        uint64    `json:"amount"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e *CompetitionDrained) EventType() Type  { return TypeCompetitionDrained }
func (e *CompetitionDrained) TokenID() *string { return nil }

// FeeRoutedToCompetition records a trade fee diverted into a prize pool.
type FeeRoutedToCompetition struct {
	CompetitionID string    `json:"competition_id"`
	Token         string    `json:"token"`
	Amount        uint64    `json:"amount"`
	Timestamp     time.Time `json:"timestamp"`
}

func (e *FeeRoutedToCompetition) EventType() Type { return TypeFeeRoutedToCompetition }

func (e *FeeRoutedToCompetition) TokenID() *string {
	t := e.Token
	return &t
}
