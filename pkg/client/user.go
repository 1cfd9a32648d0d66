package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/lifecycle"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

type avatarEnvelope struct {
	Avatar string       `json:"avatar"`
	User   *models.User `json:"user"`
}

func (c *Client) UpdateSettings(ctx context.Context, in lifecycle.SettingsInput) (*models.User, error) {
	var result userEnvelope
	if err := c.call(ctx, http.MethodPatch, "/api/user/settings", in, &result); err != nil {
		return nil, err
	}
	return result.User, nil
}

// UploadAvatar sends an image as the "avatar" form file. The server stores it as a data URL.
func (c *Client) UploadAvatar(ctx context.Context, filename, contentType string, data []byte) (*models.User, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="avatar"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return c.postAvatar(ctx, mw.FormDataContentType(), &body)
}

// SetAvatarURL points the avatar at an external URL.
func (c *Client) SetAvatarURL(ctx context.Context, avatarURL string) (*models.User, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("avatarUrl", avatarURL); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return c.postAvatar(ctx, mw.FormDataContentType(), &body)
}

func (c *Client) postAvatar(ctx context.Context, contentType string, body *bytes.Buffer) (*models.User, error) {
	resp, err := c.send(ctx, http.MethodPost, "/api/user/avatar", contentType, body)
	if err != nil {
		return nil, err
	}
	var result avatarEnvelope
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result.User, nil
}

// DeleteAccount removes the account and everything it owns. The password must match.
func (c *Client) DeleteAccount(ctx context.Context, password string) error {
	req := struct {
		Password string `json:"password"`
	}{password}
	return c.call(ctx, http.MethodDelete, "/api/user/delete", req, nil)
}

func (c *Client) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	if err := c.call(ctx, http.MethodGet, "/api/dashboard/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
