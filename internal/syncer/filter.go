package syncer

import (
	"slices"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/roach88/mudsync/internal/ir"
	"github.com/roach88/mudsync/internal/resource"
)

// Canonical store event signatures, in topic order.
const (
	SigSetRecord         = "Store_SetRecord(bytes32,bytes32[],bytes,bytes32,bytes)"
	SigSpliceStaticData  = "Store_SpliceStaticData(bytes32,bytes32[],uint48,bytes)"
	SigSpliceDynamicData = "Store_SpliceDynamicData(bytes32,bytes32[],uint48,uint40,bytes32,bytes)"
	SigDeleteRecord      = "Store_DeleteRecord(bytes32,bytes32[])"
)

var topics = func() []common.Hash {
	sigs := []string{SigSetRecord, SigSpliceStaticData, SigSpliceDynamicData, SigDeleteRecord}
	out := make([]common.Hash, len(sigs))
	for i, sig := range sigs {
		out[i] = common.BytesToHash(ir.Keccak256([]byte(sig)))
	}
	return out
}()

// Topics returns the topic[0] hashes of the four store events.
func Topics() []common.Hash {
	return slices.Clone(topics)
}

// Filter returns the log filter for one world and namespace: any of the
// four store events whose tableId is a registered table of namespace.
// With no tables registered the tableId position is left open.
func (s *Syncer) Filter(address common.Address, namespace [resource.NamespaceSize]byte) ethereum.FilterQuery {
	ids := s.dispatcher.Registry().TableIDs(namespace)
	tables := make([]common.Hash, len(ids))
	for i, id := range ids {
		tables[i] = common.Hash(id)
	}
	q := ethereum.FilterQuery{
		Addresses: []common.Address{address},
		Topics:    [][]common.Hash{Topics()},
	}
	if len(tables) > 0 {
		q.Topics = append(q.Topics, tables)
	}
	return q
}
