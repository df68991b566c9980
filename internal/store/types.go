package store

import "time"

// Entry is one persisted row of the file-fact cache.
type Entry struct {
	Filepath      string
	ContentHash   string
	SchemaVersion int
	Facts         []byte
}

// Stats holds statistics about the persisted cache.
type Stats struct {
	EntryCount int       `json:"entry_count"`
	WrittenAt  time.Time `json:"written_at"`
	DBPath     string    `json:"db_path"`
}
