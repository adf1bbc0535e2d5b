package redis

const (
	// backupDocumentScript copies the primary document to the backup key.
	// Returns 1 when a document was copied and 0 when there was none.
	backupDocumentScript = `
local document_key = KEYS[1]   -- {prefix}:document
local backup_key = KEYS[2]     -- {prefix}:document:backup

local current = redis.call('GET', document_key)
if not current then
  return 0
end

redis.call('SET', backup_key, current)
return 1
`
)
