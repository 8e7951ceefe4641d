package models

// User is the public view of an account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Profile holds the user-editable presentation fields of an account.
type Profile struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Status      string `json:"status"`
	Avatar      string `json:"avatar"`
}
