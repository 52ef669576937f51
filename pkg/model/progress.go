package model

import "time"

// ChurnProgress is one combined view of the countdown outputs, handed to presentation consumers.
type ChurnProgress struct {
	ChurnType         string           `json:"churn_type"`
	BlockHeight       int64            `json:"block_height"`
	BlocksLeft        int64            `json:"blocks_left"`
	PercentLeft       float64          `json:"percent_left"`
	TimeLeft          HumanTime        `json:"time_left"`
	ChurnIntervalTime HumanTime        `json:"churn_interval_time"`
	ChurnInterval     int64            `json:"churn_interval"`
	BlockTimeMs       int64            `json:"block_time_ms"`
	Status            ConnectionStatus `json:"status"`
	ConfigError       string           `json:"config_error,omitempty"`
	NetworkError      string           `json:"network_error,omitempty"`
	GeneratedAt       time.Time        `json:"generated_at"`
}
