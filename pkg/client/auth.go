package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/lifecycle"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userEnvelope struct {
	User *models.User `json:"user"`
}

// Register creates an account and starts its session.
func (c *Client) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	var result userEnvelope
	req := lifecycle.RegisterInput{Name: name, Email: email, Password: password}
	if err := c.call(ctx, http.MethodPost, "/api/auth/register", req, &result); err != nil {
		return nil, fmt.Errorf("register failed: %w", err)
	}
	return result.User, nil
}

// Login starts a session for an existing account.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	var result userEnvelope
	if err := c.call(ctx, http.MethodPost, "/api/auth/login", LoginRequest{Email: email, Password: password}, &result); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	return result.User, nil
}

// Logout clears the session cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the account of the current session.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var result userEnvelope
	if err := c.call(ctx, http.MethodGet, "/api/auth/me", nil, &result); err != nil {
		return nil, err
	}
	return result.User, nil
}
