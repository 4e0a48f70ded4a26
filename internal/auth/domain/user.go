package domain

// User is a directory user as seen by the authorization server. Credentials
// never leave the directory.
type User struct {
	ID               string `json:"id"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	FirstName        string `json:"firstName,omitempty"`
	LastName         string `json:"lastName,omitempty"`
	PhoneNumber      string `json:"phoneNumber"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}
