package domain

// ReactionRecord is one reactor enriched with guild roles.
type ReactionRecord struct {
	ID          string   `json:"id"`
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles"`
}

// NewReactionRecord builds a record for u with the given roles.
// A nil role list becomes empty so it encodes as [].
func NewReactionRecord(u User, roles []string) ReactionRecord {
	if roles == nil {
		roles = []string{}
	}
	return ReactionRecord{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName(),
		Roles:       roles,
	}
}
