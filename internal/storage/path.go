package storage

import "path/filepath"

// shardWidth is the number of leading key characters used as the shard
// directory. Media keys are UUID-derived, so two characters spread the
// tree across 256 directories.
const shardWidth = 2

// ShardedPath returns the filesystem path for a media key.
//
// Example:
//
//	key: "ab12cd34..."
//	basePath: "/data/media"
//	result: "/data/media/ab/ab12cd34..."
func ShardedPath(basePath, key string) string {
	if len(key) < shardWidth {
		return filepath.Join(basePath, key)
	}
	return filepath.Join(basePath, key[:shardWidth], key)
}
