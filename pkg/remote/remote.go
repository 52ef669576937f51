// Package remote holds the tri-state result used for every asynchronously fetched value.
package remote

import "errors"

// State is the active variant of a Value.
type State int

const (
	StatePending State = iota
	StateSuccess
	StateFailure
)

func (s State) String() string {
	switch s {
	case StateSuccess:
		return "success"
	case StateFailure:
		return "failure"
	default:
		return "pending"
	}
}

// ErrNoValue is returned by Get for a pending value.
var ErrNoValue = errors.New("value is pending")

// Value is either pending, a success carrying T, or a failure carrying an error.
// The zero Value is pending.
type Value[T any] struct {
	state State
	value T
	err   error
}

func Pending[T any]() Value[T] {
	return Value[T]{state: StatePending}
}

func Success[T any](v T) Value[T] {
	return Value[T]{state: StateSuccess, value: v}
}

// Failure wraps err. A nil err is replaced with a generic error so a failure always carries one.
func Failure[T any](err error) Value[T] {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Value[T]{state: StateFailure, err: err}
}

func (v Value[T]) State() State { return v.state }

func (v Value[T]) IsPending() bool { return v.state == StatePending }

func (v Value[T]) IsSuccess() bool { return v.state == StateSuccess }

func (v Value[T]) IsFailure() bool { return v.state == StateFailure }

// Err returns the failure error, nil for the other variants.
func (v Value[T]) Err() error { return v.err }

// Get returns the success value or the reason there is none.
func (v Value[T]) Get() (T, error) {
	switch v.state {
	case StateSuccess:
		return v.value, nil
	case StateFailure:
		var zero T
		return zero, v.err
	default:
		var zero T
		return zero, ErrNoValue
	}
}

func (v Value[T]) GetOrElse(def T) T {
	if v.state == StateSuccess {
		return v.value
	}
	return def
}

// Match dispatches on the variant. Every consumption site handles all three.
func Match[T, R any](v Value[T], onPending func() R, onFailure func(error) R, onSuccess func(T) R) R {
	switch v.state {
	case StateSuccess:
		return onSuccess(v.value)
	case StateFailure:
		return onFailure(v.err)
	default:
		return onPending()
	}
}

// Handle is Match for consumers that only act on the value.
func (v Value[T]) Handle(onPending func(), onFailure func(error), onSuccess func(T)) {
	switch v.state {
	case StateSuccess:
		onSuccess(v.value)
	case StateFailure:
		onFailure(v.err)
	default:
		onPending()
	}
}

// Map transforms the success value and keeps pending/failure as they are.
func Map[T, R any](v Value[T], fn func(T) R) Value[R] {
	return Match(v,
		Pending[R],
		Failure[R],
		func(t T) Value[R] { return Success(fn(t)) },
	)
}

// Chain is Map for transformations that can fail themselves.
func Chain[T, R any](v Value[T], fn func(T) Value[R]) Value[R] {
	return Match(v, Pending[R], Failure[R], fn)
}
