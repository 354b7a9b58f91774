package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"LaunchCore/internal/engine"
	"LaunchCore/internal/op"
)

// ParseRawOperation converts a RawOperation (JSON bytes + op type string)
// into a typed op.Operation. The ingestion shell validates, parses, and
// converts raw submissions before sending to the operation core.
func ParseRawOperation(raw RawOperation, opType string) (op.Operation, error) {
	switch opType {
	case "CreateToken":
		return parseCreateToken(raw.Data)
	case "Buy":
		return parseBuy(raw.Data)
	case "Sell":
		return parseSell(raw.Data)
	case "UpdateConfig":
		return parseUpdateConfig(raw.Data)
	case "CreateCompetition":
		return parseCreateCompetition(raw.Data)
	case "UpdateCompetitionSplits":
		return parseUpdateCompetitionSplits(raw.Data)
	case "RegisterParticipant":
		return parseRegisterParticipant(raw.Data)
	case "RegisterToken":
		return parseRegisterToken(raw.Data)
	case "ContributePrizePool":
		return parseContributePrizePool(raw.Data)
	case "FinalizeCompetition":
		return parseFinalizeCompetition(raw.Data)
	case "ClaimPrize":
		return parseClaimPrize(raw.Data)
	case "CancelCompetition":
		return parseCancelCompetition(raw.Data)
	case "DrainCompetition":
		return parseDrainCompetition(raw.Data)
	default:
		return nil, fmt.Errorf("unknown op type: %s", opType)
	}
}

// --- JSON wire formats ---
// These structs represent the JSON payloads received from NATS.
// Field names use snake_case to match upstream producers.

type createTokenJSON struct {
	OpID        string `json:"op_id"`
	Token       string `json:"token"`
	Creator     string `json:"creator"`
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description,omitempty"`
	ImageURI    string `json:"image_uri,omitempty"`
	Payment     uint64 `json:"payment"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseCreateToken(data []byte) (*op.CreateToken, error) {
	var j createTokenJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse CreateToken: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	return &op.CreateToken{
		OpID:        opID,
		Token:       j.Token,
		Creator:     j.Creator,
		Name:        j.Name,
		Symbol:      j.Symbol,
		Description: j.Description,
		ImageURI:    j.ImageURI,
		Payment:     j.Payment,
		Timestamp:   time.UnixMicro(j.TimestampUs),
	}, nil
}

type tradeJSON struct {
	OpID        string `json:"op_id"`
	Token       string `json:"token"`
	Trader      string `json:"trader"`
	BaseIn      uint64 `json:"base_in,omitempty"`
	TokenIn     uint64 `json:"token_in,omitempty"`
	Payment     uint64 `json:"payment,omitempty"`
	TimestampUs int64  `json:"timestamp_us"`
}

func parseBuy(data []byte) (*op.Buy, error) {
	var j tradeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Buy: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	return &op.Buy{
		OpID:      opID,
		Token:     j.Token,
		Trader:    j.Trader,
		BaseIn:    j.BaseIn,
		Payment:   j.Payment,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

func parseSell(data []byte) (*op.Sell, error) {
	var j tradeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse Sell: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	return &op.Sell{
		OpID:      opID,
		Token:     j.Token,
		Trader:    j.Trader,
		TokenIn:   j.TokenIn,
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type configJSON struct {
	Version             uint64 `json:"version"`
	Admin               string `json:"admin"`
	PlatformFeeBps      uint32 `json:"platform_fee_bps"`
	CreationFee         uint64 `json:"creation_fee"`
	GraduationFee       uint64 `json:"graduation_fee"`
	GraduationThreshold uint64 `json:"graduation_threshold"`
	InitialVirtualBase  uint64 `json:"initial_virtual_base"`
	InitialVirtualToken uint64 `json:"initial_virtual_token"`
	InitialTokenSupply  uint64 `json:"initial_token_supply"`
	ReserveTokenBps     uint32 `json:"reserve_token_bps"`
	DefaultDecimals     uint8  `json:"default_decimals"`
	MinTradeAmount      uint64 `json:"min_trade_amount"`
	MaxNameLen          int    `json:"max_name_len"`
	MaxSymbolLen        int    `json:"max_symbol_len"`
	MaxDescriptionLen   int    `json:"max_description_len"`
	MaxURILen           int    `json:"max_uri_len"`
}

type updateConfigJSON struct {
	OpID        string     `json:"op_id"`
	Caller      string     `json:"caller"`
	Config      configJSON `json:"config"`
	TimestampUs int64      `json:"timestamp_us"`
}

func parseUpdateConfig(data []byte) (*op.UpdateConfig, error) {
	var j updateConfigJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse UpdateConfig: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	return &op.UpdateConfig{
		OpID:   opID,
		Caller: j.Caller,
		Next: engine.Config{
			Version:             j.Config.Version,
			Admin:               j.Config.Admin,
			PlatformFeeBps:      j.Config.PlatformFeeBps,
			CreationFee:         j.Config.CreationFee,
			GraduationFee:       j.Config.GraduationFee,
			GraduationThreshold: j.Config.GraduationThreshold,
			InitialVirtualBase:  j.Config.InitialVirtualBase,
			InitialVirtualToken: j.Config.InitialVirtualToken,
			InitialTokenSupply:  j.Config.InitialTokenSupply,
			ReserveTokenBps:     j.Config.ReserveTokenBps,
			DefaultDecimals:     j.Config.DefaultDecimals,
			MinTradeAmount:      j.Config.MinTradeAmount,
			MaxNameLen:          j.Config.MaxNameLen,
			MaxSymbolLen:        j.Config.MaxSymbolLen,
			MaxDescriptionLen:   j.Config.MaxDescriptionLen,
			MaxURILen:           j.Config.MaxURILen,
		},
		Timestamp: time.UnixMicro(j.TimestampUs),
	}, nil
}

type createCompetitionJSON struct {
	OpID                    string `json:"op_id"`
	CompetitionID           string `json:"competition_id"`
	Caller                  string `json:"caller"`
	Name                    string `json:"name"`
	Description             string `json:"description,omitempty"`
	StartTsUs               int64  `json:"start_ts_us"`
	EndTsUs                 int64  `json:"end_ts_us"`
	ParticipationFee        uint64 `json:"participation_fee"`
	PlatformFeeBps          uint32 `json:"platform_fee_bps"`
	FirstBps                uint32 `json:"first_bps"`
	SecondBps               uint32 `json:"second_bps"`
	ThirdBps                uint32 `json:"third_bps"`
	MaxTokensPerParticipant int    `json:"max_tokens_per_participant"`
	AllowMidRegistration    bool   `json:"allow_mid_registration"`
	TimestampUs             int64  `json:"timestamp_us"`
}

func parseCreateCompetition(data []byte) (*op.CreateCompetition, error) {
	var j createCompetitionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse CreateCompetition: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	return &op.CreateCompetition{
		OpID:                    opID,
		CompetitionID:           j.CompetitionID,
		Caller:                  j.Caller,
		Name:                    j.Name,
		Description:             j.Description,
		StartTime:               time.UnixMicro(j.StartTsUs),
		EndTime:                 time.UnixMicro(j.EndTsUs),
		ParticipationFee:        j.ParticipationFee,
		PlatformFeeBps:          j.PlatformFeeBps,
		FirstBps:                j.FirstBps,
		SecondBps:               j.SecondBps,
		ThirdBps:                j.ThirdBps,
		MaxTokensPerParticipant: j.MaxTokensPerParticipant,
		AllowMidRegistration:    j.AllowMidRegistration,
		Timestamp:               time.UnixMicro(j.TimestampUs),
	}, nil
}

type splitsJSON struct {
	OpID          string `json:"op_id"`
	CompetitionID string `json:"competition_id"`
	Caller        string `json:"caller"`
	FirstBps      uint32 `json:"first_bps"`
	SecondBps     uint32 `json:"second_bps"`
	ThirdBps      uint32 `json:"third_bps"`
	TimestampUs   int64  `json:"timestamp_us"`
}

func parseUpdateCompetitionSplits(data []byte) (*op.UpdateCompetitionSplits, error) {
	var j splitsJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse UpdateCompetitionSplits: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	return &op.UpdateCompetitionSplits{
		OpID:          opID,
		CompetitionID: j.CompetitionID,
		Caller:        j.Caller,
		FirstBps:      j.FirstBps,
		SecondBps:     j.SecondBps,
		ThirdBps:      j.ThirdBps,
		Timestamp:     time.UnixMicro(j.TimestampUs),
	}, nil
}

type registerParticipantJSON struct {
	OpID          string `json:"op_id"`
	CompetitionID string `json:"competition_id"`
	Participant   string `json:"participant"`
	Payment       uint64 `json:"payment"`
	TimestampUs   int64  `json:"timestamp_us"`
}

func parseRegisterParticipant(data []byte) (*op.RegisterParticipant, error) {
	var j registerParticipantJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse RegisterParticipant: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	return &op.RegisterParticipant{
		OpID:          opID,
		CompetitionID: j.CompetitionID,
		Participant:   j.Participant,
		Payment:       j.Payment,
		Timestamp:     time.UnixMicro(j.TimestampUs),
	}, nil
}

type registerTokenJSON struct {
	OpID          string `json:"op_id"`
	CompetitionID string `json:"competition_id"`
	Participant   string `json:"participant"`
	Token         string `json:"token"`
	TimestampUs   int64  `json:"timestamp_us"`
}

func parseRegisterToken(data []byte) (*op.RegisterToken, error) {
	var j registerTokenJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse RegisterToken: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	return &op.RegisterToken{
		OpID:          opID,
		CompetitionID: j.CompetitionID,
		Participant:   j.Participant,
		Token:         j.Token,
		Timestamp:     time.UnixMicro(j.TimestampUs),
	}, nil
}

type contributeJSON struct {
	OpID          string `json:"op_id"`
	CompetitionID string `json:"competition_id"`
	Contributor   string `json:"contributor"`
	Amount        uint64 `json:"amount"`
	TimestampUs   int64  `json:"timestamp_us"`
}

func parseContributePrizePool(data []byte) (*op.ContributePrizePool, error) {
	var j contributeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ContributePrizePool: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	return &op.ContributePrizePool{
		OpID:          opID,
		CompetitionID: j.CompetitionID,
		Contributor:   j.Contributor,
		Amount:        j.Amount,
		Timestamp:     time.UnixMicro(j.TimestampUs),
	}, nil
}

type finalizeJSON struct {
	OpID          string `json:"op_id"`
	CompetitionID string `json:"competition_id"`
	Caller        string `json:"caller"`
	First         string `json:"first"`
	Second        string `json:"second"`
	Third         string `json:"third"`
	TimestampUs   int64  `json:"timestamp_us"`
}

func parseFinalizeCompetition(data []byte) (*op.FinalizeCompetition, error) {
	var j finalizeJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse FinalizeCompetition: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	return &op.FinalizeCompetition{
		OpID:          opID,
		CompetitionID: j.CompetitionID,
		Caller:        j.Caller,
		First:         j.First,
		Second:        j.Second,
		Third:         j.Third,
		Timestamp:     time.UnixMicro(j.TimestampUs),
	}, nil
}

type claimJSON struct {
	OpID          string `json:"op_id"`
	CompetitionID string `json:"competition_id"`
	Caller        string `json:"caller"`
	TimestampUs   int64  `json:"timestamp_us"`
}

func parseClaimPrize(data []byte) (*op.ClaimPrize, error) {
	var j claimJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse ClaimPrize: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	return &op.ClaimPrize{
		OpID:          opID,
		CompetitionID: j.CompetitionID,
		Caller:        j.Caller,
		Timestamp:     time.UnixMicro(j.TimestampUs),
	}, nil
}

type cancelJSON struct {
	OpID          string `json:"op_id"`
	CompetitionID string `json:"competition_id"`
	Caller        string `json:"caller"`
	Reason        string `json:"reason,omitempty"`
	TimestampUs   int64  `json:"timestamp_us"`
}

func parseCancelCompetition(data []byte) (*op.CancelCompetition, error) {
	var j cancelJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse CancelCompetition: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	return &op.CancelCompetition{
		OpID:          opID,
		CompetitionID: j.CompetitionID,
		Caller:        j.Caller,
		Reason:        j.Reason,
		Timestamp:     time.UnixMicro(j.TimestampUs),
	}, nil
}

func parseDrainCompetition(data []byte) (*op.DrainCompetition, error) {
	var j claimJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse DrainCompetition: %w", err)
	}
	opID, err := uuid.Parse(j.OpID)
	if err != nil {
		return nil, fmt.Errorf("parse op_id: %w", err)
	}
	return &op.DrainCompetition{
		OpID:          opID,
		CompetitionID: j.CompetitionID,
		Caller:        j.Caller,
		Timestamp:     time.UnixMicro(j.TimestampUs),
	}, nil
}
