package query

import "time"

// PoolStateResponse is the live curve state for one token.
type PoolStateResponse struct {
	Token             string `json:"token"`
	VirtualBase       int64  `json:"virtual_base"`
	VirtualToken      int64  `json:"virtual_token"`
	RealBase          int64  `json:"real_base"`
	CirculatingSupply int64  `json:"circulating_supply"`
	LastPrice         int64  `json:"last_price"`
	Graduated         bool   `json:"graduated"`
	TradeCount        int64  `json:"trade_count"`
	BuyVolume         int64  `json:"buy_volume"`
	SellVolume        int64  `json:"sell_volume"`
	AsOfSequence      int64  `json:"as_of_sequence"`
}

// TokenResponse is one launched token's registry entry.
type TokenResponse struct {
	Token        string    `json:"token"`
	Creator      string    `json:"creator"`
	Name         string    `json:"name"`
	Symbol       string    `json:"symbol"`
	Decimals     int16     `json:"decimals"`
	Graduated    bool      `json:"graduated"`
	VenuePoolID  *string   `json:"venue_pool_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	AsOfSequence int64     `json:"as_of_sequence"`
}

// TradeResponse is one fill from the trade log.
type TradeResponse struct {
	TradeID       string    `json:"trade_id"`
	Token         string    `json:"token"`
	Trader        string    `json:"trader"`
	Direction     string    `json:"direction"`
	BaseAmount    int64     `json:"base_amount"`
	TokenAmount   int64     `json:"token_amount"`
	Fee           int64     `json:"fee"`
	CompetitionID *string   `json:"competition_id,omitempty"`
	PriceBefore   int64     `json:"price_before"`
	PriceAfter    int64     `json:"price_after"`
	Sequence      int64     `json:"sequence"`
	Timestamp     time.Time `json:"timestamp"`
}

// WinnerResponse is one podium entry of a finalized competition.
type WinnerResponse struct {
	Rank    int    `json:"rank"`
	Token   string `json:"token"`
	Address string `json:"address"`
	Prize   int64  `json:"prize"`
	Claimed bool   `json:"claimed"`
}

// CompetitionResponse is the projected state of one competition.
type CompetitionResponse struct {
	CompetitionID    string           `json:"competition_id"`
	Name             string           `json:"name"`
	StartTime        time.Time        `json:"start_time"`
	EndTime          time.Time        `json:"end_time"`
	ParticipationFee int64            `json:"participation_fee"`
	FirstBps         int32            `json:"first_bps"`
	SecondBps        int32            `json:"second_bps"`
	ThirdBps         int32            `json:"third_bps"`
	PrizePool        int64            `json:"prize_pool"`
	Participants     int64            `json:"participants"`
	Entries          int64            `json:"entries"`
	Status           string           `json:"status"`
	Winners          []WinnerResponse `json:"winners,omitempty"`
	AsOfSequence     int64            `json:"as_of_sequence"`
}

// IntegrityReport summarizes event-log and projection invariant checks.
type IntegrityReport struct {
	IsHealthy       bool     `json:"is_healthy"`
	HashChainBreaks []int64  `json:"hash_chain_breaks,omitempty"`
	GraduatedDirty  []string `json:"graduated_dirty,omitempty"`
}
