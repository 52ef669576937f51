package rpc

import (
	"encoding/json"
	"fmt"

	types "github.com/cometbft/cometbft/rpc/jsonrpc/types"

	"github.com/nodersteam/churn-countdown/pkg/model"
	"github.com/nodersteam/churn-countdown/pkg/remote"
)

const (
	// NewBlockQuery is the tendermint event query the feed subscribes to.
	NewBlockQuery = "tm.event='NewBlock'"

	newBlockEventType = "tendermint/event/NewBlock"
	subscriptionID    = types.JSONRPCIntID(1)
)

func subscribeRequest() (types.RPCRequest, error) {
	return types.ArrayToRequest(subscriptionID, "subscribe", []interface{}{NewBlockQuery})
}

func unsubscribeRequest() (types.RPCRequest, error) {
	return types.ArrayToRequest(subscriptionID, "unsubscribe", []interface{}{NewBlockQuery})
}

// decodeMessage classifies one websocket frame. Frames that are not new block notifications for
// our query report ok=false and are dropped by the caller. A new block whose header cannot be
// parsed comes back as a failure.
func decodeMessage(msg []byte) (value remote.Value[model.BlockEvent], ok bool) {
	var resp types.RPCResponse
	if err := json.Unmarshal(msg, &resp); err != nil {
		return value, false
	}
	if resp.Error != nil || len(resp.Result) == 0 {
		return value, false
	}

	var event model.TendermintEvent
	if err := json.Unmarshal(resp.Result, &event); err != nil {
		return value, false
	}
	if event.Query != NewBlockQuery {
		return value, false
	}
	if event.Data.Type != "" && event.Data.Type != newBlockEventType {
		return value, false
	}
	block := event.Data.Value.Block
	if block == nil {
		return value, false
	}

	be, err := model.NewBlockEvent(block.Header.Height, block.Header.Time)
	if err != nil {
		return remote.Failure[model.BlockEvent](fmt.Errorf("decode new block: %w", err)), true
	}
	return remote.Success(be), true
}
