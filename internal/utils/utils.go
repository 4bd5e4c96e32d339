package utils

import (
	"github.com/cespare/xxhash/v2"
)

// ShardIndex 計算分片索引
func ShardIndex(totalShards uint64, key []byte) uint64 {
	if totalShards <= 1 {
		return 0
	}
	return xxhash.Sum64(key) % totalShards
}
