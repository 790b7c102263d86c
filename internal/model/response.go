package model

// ErrorResponse is the standard envelope for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AuthStatus reports whether the caller holds a valid session. Status
// endpoints always return 200; missing or invalid auth is not an error.
type AuthStatus struct {
	Authed bool   `json:"authed"`
	User   string `json:"user,omitempty"`
	Role   Role   `json:"role,omitempty"`
}
