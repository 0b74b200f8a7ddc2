package transfer

type LoginRequest struct {
	Handle      string `json:"handle"`
	AppPassword string `json:"app_password"`
}
