package codec

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	// ErrUnknownEvent is returned for a log whose topic[0] is not a store event.
	ErrUnknownEvent = errors.New("unknown event topic")

	// ErrMalformedLog is returned when a store event's payload cannot be decoded.
	ErrMalformedLog = errors.New("malformed event log")
)

// Event is one decoded store event.
type Event struct {
	Kind        Kind
	Params      Params
	Address     common.Address
	BlockNumber uint64
	LogIndex    uint
}

// Decode decodes a raw log. The kind comes from topic[0]; indexed arguments
// are read from the remaining topics and the rest from the data payload.
func Decode(log types.Log) (Event, error) {
	if len(log.Topics) == 0 {
		return Event{}, fmt.Errorf("%w: log has no topics", ErrUnknownEvent)
	}
	kind, ok := KindOf(log.Topics[0])
	if !ok {
		return Event{}, fmt.Errorf("%w: %s", ErrUnknownEvent, log.Topics[0].Hex())
	}
	ev := events[kind]

	params := make(map[string]any, len(ev.Inputs))
	if err := ev.Inputs.UnpackIntoMap(params, log.Data); err != nil {
		return Event{}, fmt.Errorf("%w: %s data: %v", ErrMalformedLog, kind, err)
	}

	var indexed abi.Arguments
	for _, in := range ev.Inputs {
		if in.Indexed {
			indexed = append(indexed, in)
		}
	}
	if len(log.Topics)-1 != len(indexed) {
		return Event{}, fmt.Errorf("%w: %s has %d topics, want %d", ErrMalformedLog, kind, len(log.Topics), len(indexed)+1)
	}
	if err := abi.ParseTopicsIntoMap(params, indexed, log.Topics[1:]); err != nil {
		return Event{}, fmt.Errorf("%w: %s topics: %v", ErrMalformedLog, kind, err)
	}

	return Event{
		Kind:        kind,
		Params:      Params(params),
		Address:     log.Address,
		BlockNumber: log.BlockNumber,
		LogIndex:    log.Index,
	}, nil
}
