package model

// PositionEvent is one journal line recording a committed lifecycle
// transition. Amounts are decimal strings at the raw 10^18 scale.
type PositionEvent struct {
	Kind       string `json:"kind"` // open, close, open_hedged, close_hedged
	Owner      string `json:"owner"`
	PositionID uint64 `json:"position_id"`
	BaseAsset  string `json:"base_asset,omitempty"`
	Asset      string `json:"asset,omitempty"`
	Supplied   string `json:"supplied,omitempty"`
	Borrowed   string `json:"borrowed,omitempty"`
	Payout     string `json:"payout,omitempty"`
	RecordedAt string `json:"recorded_at"`
}
