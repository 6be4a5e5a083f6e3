package platform

import (
	"context"
	"net/http"
	"time"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a login response. User is optional.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user,omitempty"`
}

// User is a console user profile.
//
// IsAdmin and Role are pointers so an absent claim can be told apart from
// a false or empty one.
type User struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Name        string     `json:"name,omitempty"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	IsActive    bool       `json:"is_active"`
	IsAdmin     *bool      `json:"is_admin,omitempty"`
	Role        *string    `json:"role,omitempty"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// DisplayName returns the name to show for the user.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// Login exchanges credentials for a bearer token
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	req := LoginRequest{
		Username: username,
		Password: password,
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/api/v1/login", "", req)
	if err != nil {
		return nil, err
	}

	var loginResp LoginResponse
	if err := parseResponse(resp, &loginResp); err != nil {
		return nil, err
	}
	if loginResp.Token == "" {
		return nil, errMissingField("token")
	}

	return &loginResp, nil
}

// CurrentUser fetches the profile of the user owning token
func (c *Client) CurrentUser(ctx context.Context, token string) (*User, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, c.ProfilePath, token, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		User
		Nested *User `json:"user"`
	}
	if err := parseResponse(resp, &envelope); err != nil {
		return nil, err
	}

	// Accept both a bare user object and {"user": {...}}.
	if envelope.Nested != nil {
		return envelope.Nested, nil
	}
	if envelope.Username == "" && envelope.ID == 0 {
		return nil, errMissingField("user")
	}
	u := envelope.User
	return &u, nil
}
