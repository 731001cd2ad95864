package model

// Feature names of a price level.
const (
	VolumeDensity       = "volume_density"
	TouchBounceCount    = "touch_bounce_count"
	BounceMagnitude     = "bounce_magnitude"
	FailedBreakoutCount = "failed_breakout_count"
	Duration            = "duration"
	MultiTFConfirm      = "multi_tf_confirm"
)

// FeatureNames lists all level features in a stable order.
var FeatureNames = []string{
	VolumeDensity,
	TouchBounceCount,
	BounceMagnitude,
	FailedBreakoutCount,
	Duration,
	MultiTFConfirm,
}

// Features are the normalized level features.
type Features map[string]float64

// Level is a scored price level.
type Level struct {
	Price    float64  `json:"price"`
	Score    float64  `json:"score"`
	Features Features `json:"features"`
}
