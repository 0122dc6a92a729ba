package model

// Client routes the guard knows about.
const (
	RouteLanding    = "/"
	RouteLogin      = "/login"
	RouteHome       = "/home"
	RouteGallery    = "/gallery"
	RouteCollection = "/collection"
	RouteStudio     = "/studio"
	RouteProfile    = "/profile"
)

// PublicRoutes are reachable without a session.
var PublicRoutes = []string{RouteLanding, RouteLogin}

// ProtectedRoutes require a session.
var ProtectedRoutes = []string{RouteHome, RouteGallery, RouteCollection, RouteStudio, RouteProfile}

// TourCompletedKey is the flag marking the onboarding tour as done for userID.
func TourCompletedKey(userID string) string {
	return "tour_completed:" + userID
}
