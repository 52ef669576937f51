package model

import "encoding/json"

// Mimir is the on-chain key/value config. Keys are absent when not set by governance.
type Mimir map[string]json.Number

// Constants is the subset of the indexer's /thorchain/constants payload we read.
type Constants struct {
	Int64Values map[string]int64 `json:"int_64_values"`
}

// Network is the subset of the indexer's /network payload we read. Integers are string-encoded.
type Network struct {
	NextChurnHeight         string `json:"nextChurnHeight"`
	PoolActivationCountdown string `json:"poolActivationCountdown"`
}

// NetworkHeights is Network with its integers decoded.
type NetworkHeights struct {
	NextChurnHeight         int64
	PoolActivationCountdown int64
}

// TendermintEvent is the JSON-RPC result pushed for a tm.event subscription.
type TendermintEvent struct {
	Query string `json:"query"`
	Data  struct {
		Type  string `json:"type"`
		Value struct {
			Block *struct {
				Header struct {
					Height string `json:"height"`
					Time   string `json:"time"`
				} `json:"header"`
			} `json:"block"`
		} `json:"value"`
	} `json:"data"`
}
