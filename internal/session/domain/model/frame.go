package model

// Server frame types.
const (
	FrameNavigate   = "navigate"
	FrameUser       = "user"
	FrameOnboarding = "onboarding"
	FrameAssets     = "assets"
	FrameError      = "error"
)

// Client frame types.
const (
	ClientRoute         = "route"
	ClientTourDismissed = "tour_dismissed"
	ClientAuth          = "auth"
)

// Frame is a message pushed to the client.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NavigateData asks the client to go to Route.
type NavigateData struct {
	Route string `json:"route"`
}

// UserData carries the projected user; User is nil when signed out.
type UserData struct {
	User *User `json:"user"`
}

// OnboardingData toggles the onboarding overlay.
type OnboardingData struct {
	Active bool `json:"active"`
}

// ClientFrame is a message received from the client.
type ClientFrame struct {
	Type  string `json:"type"`
	Route string `json:"route,omitempty"`
	// Token binds a session obtained after connecting.
	Token string `json:"token,omitempty"`
}
