package codec

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrMissingParam = errors.New("missing event parameter")
	ErrParamType    = errors.New("event parameter has wrong type")
)

// Params is the decoded name to value map of one event.
//
// Values have the types go-ethereum's ABI decoder produces: bytes32 is
// [32]byte, bytes32[] is [][32]byte, bytes is []byte, and uint40/uint48
// are *big.Int.
type Params map[string]any

func (p Params) lookup(name string) (any, error) {
	v, ok := p[name]
	if !ok || v == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingParam, name)
	}
	return v, nil
}

// Bytes32 returns a bytes32 parameter.
func (p Params) Bytes32(name string) ([32]byte, error) {
	v, err := p.lookup(name)
	if err != nil {
		return [32]byte{}, err
	}
	b, ok := v.([32]byte)
	if !ok {
		return [32]byte{}, fmt.Errorf("%w: %s is %T, want bytes32", ErrParamType, name, v)
	}
	return b, nil
}

// KeyTuple returns the bytes32[] key tuple.
func (p Params) KeyTuple() ([][32]byte, error) {
	v, err := p.lookup(ParamKeyTuple)
	if err != nil {
		return nil, err
	}
	keys, ok := v.([][32]byte)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, want bytes32[]", ErrParamType, ParamKeyTuple, v)
	}
	return keys, nil
}

// Bytes returns a dynamic bytes parameter.
func (p Params) Bytes(name string) ([]byte, error) {
	v, err := p.lookup(name)
	if err != nil {
		return nil, err
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, want bytes", ErrParamType, name, v)
	}
	return b, nil
}

// Uint returns an unsigned integer parameter such as start or deleteCount.
func (p Params) Uint(name string) (uint64, error) {
	v, err := p.lookup(name)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case *big.Int:
		if n.Sign() < 0 || !n.IsUint64() {
			return 0, fmt.Errorf("%w: %s = %s out of range", ErrParamType, name, n)
		}
		return n.Uint64(), nil
	case uint64:
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s is %T, want uint", ErrParamType, name, v)
	}
}
