package monitoring

import "time"

// MessageResponse is returned by action endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// AlertStatusDTO describes the alert gate of one signal.
type AlertStatusDTO struct {
	Signal     string     `json:"signal"`
	Alert      string     `json:"alert"`
	Threshold  float64    `json:"threshold"`
	Comparison string     `json:"comparison"`
	CooldownMs int64      `json:"cooldown_ms"`
	LastFired  *time.Time `json:"last_fired,omitempty"`
	CoolingOff bool       `json:"cooling_off"`
}

// AlertStatusResponse lists the alert gates and delivery channels.
type AlertStatusResponse struct {
	Signals  []AlertStatusDTO `json:"signals"`
	Channels []string         `json:"channels"`
}
