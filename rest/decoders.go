package rest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nodersteam/churn-countdown/pkg/model"
)

// Decoder validates a response body against the shape a poller expects. It never panics;
// any mismatch comes back as an error.
type Decoder[T any] func(body []byte) (T, error)

var ErrUnexpectedShape = errors.New("unexpected response shape")

func decodeStrict(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return nil
}

// DecodeMimir accepts any JSON object with numeric values.
func DecodeMimir(body []byte) (model.Mimir, error) {
	var raw map[string]any
	if err := decodeStrict(body, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: mimir is not an object", ErrUnexpectedShape)
	}
	mimir := make(model.Mimir, len(raw))
	for k, v := range raw {
		// mimir is numeric only, anything else is skipped rather than rejected
		if n, ok := v.(json.Number); ok {
			mimir[k] = n
		}
	}
	return mimir, nil
}

func DecodeConstants(body []byte) (model.Constants, error) {
	var c model.Constants
	if err := decodeStrict(body, &c); err != nil {
		return c, err
	}
	if c.Int64Values == nil {
		return c, fmt.Errorf("%w: missing int_64_values", ErrUnexpectedShape)
	}
	return c, nil
}

// DecodeNetwork requires both string-encoded heights to be present and numeric.
func DecodeNetwork(body []byte) (model.NetworkHeights, error) {
	var n model.Network
	if err := decodeStrict(body, &n); err != nil {
		return model.NetworkHeights{}, err
	}
	next, err := parseStringInt("nextChurnHeight", n.NextChurnHeight)
	if err != nil {
		return model.NetworkHeights{}, err
	}
	countdown, err := parseStringInt("poolActivationCountdown", n.PoolActivationCountdown)
	if err != nil {
		return model.NetworkHeights{}, err
	}
	return model.NetworkHeights{
		NextChurnHeight:         next,
		PoolActivationCountdown: countdown,
	}, nil
}

func parseStringInt(field, v string) (int64, error) {
	if v == "" {
		return 0, fmt.Errorf("%w: missing %s", ErrUnexpectedShape, field)
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s is not an integer: %v", ErrUnexpectedShape, field, err)
	}
	return i, nil
}
