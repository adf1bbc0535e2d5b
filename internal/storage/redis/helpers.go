package redis

import "github.com/goodtune/screentime/internal/config"

// keys builds the key names used by the store.
type keys struct {
	prefix string
}

func newKeys(prefix string) keys {
	if prefix == "" {
		prefix = config.DefaultRedisKey
	}
	return keys{prefix: prefix}
}

// document is <prefix>:document
func (k keys) document() string {
	return k.prefix + ":document"
}

// backup is <prefix>:document:backup
func (k keys) backup() string {
	return k.prefix + ":document:backup"
}
