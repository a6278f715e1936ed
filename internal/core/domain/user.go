package domain

// User is an upstream user object.
type User struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name,omitempty"`
	Bot        bool   `json:"bot,omitempty"`
}

// DisplayName prefers the platform-wide display name over the raw username.
func (u User) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// Member is a guild member. Only the role list is consumed.
type Member struct {
	Nick  string   `json:"nick,omitempty"`
	Roles []string `json:"roles"`
}

// Connection is an external account linked to a user profile.
type Connection struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
	Revoked  bool   `json:"revoked,omitempty"`
}
