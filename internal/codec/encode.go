package codec

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Encode builds the raw log a world contract would emit for an event of
// kind k. Params must hold a value for every argument of k, typed as Decode
// would return it. Block position fields of the returned log are left zero.
func Encode(k Kind, address common.Address, params Params) (types.Log, error) {
	ev, ok := events[k]
	if !ok {
		return types.Log{}, fmt.Errorf("encode: unknown kind %s", k)
	}

	topics := []common.Hash{ev.ID}
	var values []any
	for _, in := range ev.Inputs {
		v, ok := params[in.Name]
		if !ok {
			return types.Log{}, fmt.Errorf("encode %s: %w: %s", k, ErrMissingParam, in.Name)
		}
		if in.Indexed {
			b, ok := v.([32]byte)
			if !ok {
				return types.Log{}, fmt.Errorf("encode %s: %w: %s is %T", k, ErrParamType, in.Name, v)
			}
			topics = append(topics, common.Hash(b))
			continue
		}
		values = append(values, v)
	}

	data, err := ev.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return types.Log{}, fmt.Errorf("encode %s: %w", k, err)
	}
	return types.Log{Address: address, Topics: topics, Data: data}, nil
}
