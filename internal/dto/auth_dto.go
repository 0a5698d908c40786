package dto

type SignupRequest struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GoogleAuthRequest carries the Firebase ID token obtained by the client.
type GoogleAuthRequest struct {
	AccessToken string `json:"access_token"`
}

// AuthResponse is returned by every successful credential flow.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	ProfileImg  string `json:"profile_img"`
	Fullname    string `json:"fullname"`
	Username    string `json:"username"`
}

// ErrorResponse carries the user-facing message of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
