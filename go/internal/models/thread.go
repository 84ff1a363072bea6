package models

// ThreadHandle binds a match to its representation in the external
// discussion thread. It carries every identifier needed to address the
// log and is reconstructible from persisted match data alone.
type ThreadHandle struct {
	ThreadID           string   `json:"thread_id"`
	GameEntryID        string   `json:"game_entry_id"`
	RoundEntryIDs      []string `json:"round_entry_ids,omitempty"`
	SubmissionEntryIDs []string `json:"submission_entry_ids,omitempty"`
	ResultEntryIDs     []string `json:"result_entry_ids,omitempty"`
}
