package model

// DefaultDisplayName is shown when neither a profile username nor an email
// is known.
const DefaultDisplayName = "ghost_user"

// User is the application-level projection of a signed-in identity. It is
// derived from the session and the optional profile, never stored.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Identity is what the session carries about its user.
type Identity struct {
	UserID    string
	Email     string
	AvatarURL string
}

// ProfileInfo is the optional profile record of a user.
type ProfileInfo struct {
	Username  string
	AvatarURL string
}

// ProjectUser derives the User. profile may be nil.
func ProjectUser(id Identity, profile *ProfileInfo) User {
	u := User{
		ID:          id.UserID,
		Email:       id.Email,
		DisplayName: DefaultDisplayName,
		AvatarURL:   id.AvatarURL,
	}
	switch {
	case profile != nil && profile.Username != "":
		u.DisplayName = profile.Username
	case id.Email != "":
		u.DisplayName = id.Email
	}
	if profile != nil && profile.AvatarURL != "" {
		u.AvatarURL = profile.AvatarURL
	}
	return u
}
