// Package codec decodes raw Store_* event logs into parameter maps.
//
// The four store events are described once as go-ethereum ABI events. The
// event kind is chosen from topic[0] alone; the payload is never inspected to
// decide what kind of event a log is.
package codec

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Kind identifies one of the four store events.
type Kind int

const (
	SetRecord Kind = iota
	SpliceStaticData
	SpliceDynamicData
	DeleteRecord
)

// Kinds lists every event kind in topic order.
var Kinds = []Kind{SetRecord, SpliceStaticData, SpliceDynamicData, DeleteRecord}

// Parameter names as they appear in the event ABI.
const (
	ParamTableID        = "tableId"
	ParamKeyTuple       = "keyTuple"
	ParamStaticData     = "staticData"
	ParamEncodedLengths = "encodedLengths"
	ParamDynamicData    = "dynamicData"
	ParamStart          = "start"
	ParamDeleteCount    = "deleteCount"
	ParamData           = "data"
)

func (k Kind) String() string {
	switch k {
	case SetRecord:
		return "SetRecord"
	case SpliceStaticData:
		return "SpliceStaticData"
	case SpliceDynamicData:
		return "SpliceDynamicData"
	case DeleteRecord:
		return "DeleteRecord"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event returns the ABI description of k.
func (k Kind) Event() abi.Event {
	return events[k]
}

// Signature returns the canonical signature hashed into topic[0], for
// example "Store_DeleteRecord(bytes32,bytes32[])".
func (k Kind) Signature() string {
	return events[k].Sig
}

// Topic returns the keccak256 hash of k's signature.
func (k Kind) Topic() common.Hash {
	return events[k].ID
}

var (
	tBytes32   = mustType("bytes32")
	tBytes32s  = mustType("bytes32[]")
	tBytes     = mustType("bytes")
	tUint48    = mustType("uint48")
	tUint40    = mustType("uint40")
	events     = buildEvents()
	kindByHash = indexTopics()
)

func mustType(s string) abi.Type {
	t, err := abi.NewType(s, "", nil)
	if err != nil {
		panic(fmt.Sprintf("codec: abi type %q: %v", s, err))
	}
	return t
}

func arg(name string, t abi.Type, indexed bool) abi.Argument {
	return abi.Argument{Name: name, Type: t, Indexed: indexed}
}

func buildEvents() map[Kind]abi.Event {
	tableID := arg(ParamTableID, tBytes32, true)
	keyTuple := arg(ParamKeyTuple, tBytes32s, false)

	return map[Kind]abi.Event{
		SetRecord: abi.NewEvent("Store_SetRecord", "Store_SetRecord", false, abi.Arguments{
			tableID,
			keyTuple,
			arg(ParamStaticData, tBytes, false),
			arg(ParamEncodedLengths, tBytes32, false),
			arg(ParamDynamicData, tBytes, false),
		}),
		SpliceStaticData: abi.NewEvent("Store_SpliceStaticData", "Store_SpliceStaticData", false, abi.Arguments{
			tableID,
			keyTuple,
			arg(ParamStart, tUint48, false),
			arg(ParamData, tBytes, false),
		}),
		SpliceDynamicData: abi.NewEvent("Store_SpliceDynamicData", "Store_SpliceDynamicData", false, abi.Arguments{
			tableID,
			keyTuple,
			arg(ParamStart, tUint48, false),
			arg(ParamDeleteCount, tUint40, false),
			arg(ParamEncodedLengths, tBytes32, false),
			arg(ParamData, tBytes, false),
		}),
		DeleteRecord: abi.NewEvent("Store_DeleteRecord", "Store_DeleteRecord", false, abi.Arguments{
			tableID,
			keyTuple,
		}),
	}
}

func indexTopics() map[common.Hash]Kind {
	m := make(map[common.Hash]Kind, len(events))
	for k, ev := range events {
		m[ev.ID] = k
	}
	return m
}

// KindOf maps a topic[0] hash to its event kind.
func KindOf(topic common.Hash) (Kind, bool) {
	k, ok := kindByHash[topic]
	return k, ok
}
