package event

import (
	"time"

	"github.com/google/uuid"
)

// TradeDirection marks a trade as buy or sell
type TradeDirection int32

const (
	DirectionBuy TradeDirection = iota
	DirectionSell
)

func (d TradeDirection) String() string {
	if d == DirectionSell {
		return "sell"
	}
	return "buy"
}

// TokenCreated is emitted once per launched token.
type TokenCreated struct {
	Token        string    `json:"token"`
	Creator      string    `json:"creator"`
	Name         string    `json:"name"`
	Symbol       string    `json:"symbol"`
	Decimals     uint8     `json:"decimals"`
	InitialMint  uint64    `json:"initial_mint"`
	VirtualBase  uint64    `json:"virtual_base"`
	VirtualToken uint64    `json:"virtual_token"`
	CreationFee  uint64    `json:"creation_fee"`
	Refund       uint64    `json:"refund"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e *TokenCreated) EventType() Type { return TypeTokenCreated }

func (e *TokenCreated) TokenID() *string {
	t := e.Token
	return &t
}

// TradeExecuted carries pre/post price and reserves for every buy and sell.
type TradeExecuted struct {
	TradeID       uuid.UUID      `json:"trade_id"`
	Token         string         `json:"token"`
	Trader        string         `json:"trader"`
	Direction     TradeDirection `json:"direction"`
	BaseAmount    uint64         `json:"base_amount"`
	TokenAmount   uint64         `json:"token_amount"`
	Fee           uint64         `json:"fee"`
	CompetitionID string         `json:"competition_id,omitempty"` // set when the fee was diverted
	PriceBefore   uint64         `json:"price_before"`
	PriceAfter    uint64         `json:"price_after"`
	VirtualBase   uint64         `json:"virtual_base"`
	VirtualToken  uint64         `json:"virtual_token"`
	RealBase      uint64         `json:"real_base"`
	Supply        uint64         `json:"supply"`
	Timestamp     time.Time      `json:"timestamp"`
}

func (e *TradeExecuted) EventType() Type { return TypeTradeExecuted }

func (e *TradeExecuted) TokenID() *string {
	t := e.Token
	return &t
}

// TokenGraduated is emitted when a pool hands off to the external venue.
type TokenGraduated struct {
	Token             string    `json:"token"`
	VenuePoolID       string    `json:"venue_pool_id"`
	BaseMoved         uint64    `json:"base_moved"`
	TokensMoved       uint64    `json:"tokens_moved"`
	InitialPriceRatio uint64    `json:"initial_price_ratio"`
	GraduationFee     uint64    `json:"graduation_fee"`
	Timestamp         time.Time `json:"timestamp"`
}

func (e *TokenGraduated) EventType() Type { return TypeTokenGraduated }

func (e *TokenGraduated) TokenID() *string {
	t := e.Token
	return &t
}
