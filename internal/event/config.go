package event

import "time"

// ConfigUpdated records a versioned platform configuration change.
type ConfigUpdated struct {
	Version        uint64    `json:"version"`
	Admin          string    `json:"admin"`
	PlatformFeeBps uint32    `json:"platform_fee_bps"`
	CreationFee    uint64    `json:"creation_fee"`
	GraduationFee  uint64    `json:"graduation_fee"`
	Timestamp      time.Time `json:"timestamp"`
}

func (e *ConfigUpdated) EventType() Type  { return TypeConfigUpdated }
func (e *ConfigUpdated) TokenID() *string { return nil }
