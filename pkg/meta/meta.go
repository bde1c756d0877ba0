package meta

import (
	"sort"
)

// ShardID the id of a logical shard. Multiple virtual shard ids may be
// mapped to one physical shard.
type ShardID uint64

// BuildShardToVirtualMap builds the inverse physical shard to virtual shard
// ids mapping from the virtual to physical mapping. A nil mapping is a
// configuration mistake, an empty mapping means no virtualization.
func BuildShardToVirtualMap(virtualToPhysical map[ShardID]ShardID) (map[ShardID][]ShardID, error) {
	if virtualToPhysical == nil {
		return nil, ErrConfiguration
	}

	m := make(map[ShardID][]ShardID, len(virtualToPhysical))
	for virtual, physical := range virtualToPhysical {
		m[physical] = append(m[physical], virtual)
	}

	for physical := range m {
		ids := m[physical]
		sort.Slice(ids, func(i, j int) bool {
			return ids[i] < ids[j]
		})
	}

	return m, nil
}
