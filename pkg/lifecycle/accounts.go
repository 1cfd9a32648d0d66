package lifecycle

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/auth"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/validate"
)

// MaxAvatarSize is the largest accepted avatar upload, in bytes.
const MaxAvatarSize = 1 << 20

// RegisterInput is the payload of a new account.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PreferencesInput changes some preferences and leaves the others alone.
type PreferencesInput struct {
	Theme         *models.Theme `json:"theme,omitempty"`
	Notifications *bool         `json:"notifications,omitempty"`
}

// SettingsInput is a partial update of the account settings.
type SettingsInput struct {
	Name        *string           `json:"name,omitempty"`
	Email       *string           `json:"email,omitempty"`
	Preferences *PreferencesInput `json:"preferences,omitempty"`
}

// AccountManager handles registration, login and the settings of an account.
type AccountManager struct {
	store  store.Store
	log    zerolog.Logger
	now    func() time.Time
	hasher auth.Hasher
}

// Register creates an account. The email is stored lower-cased.
func (m *AccountManager) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if !validate.Present(in.Name, in.Email, in.Password) {
		return nil, validation("All fields are required")
	}
	email := validate.NormalizeEmail(in.Email)
	if !validate.Email(email) {
		return nil, validation("Invalid email format")
	}
	if !validate.Password(in.Password) {
		return nil, validation("Password must be at least 6 characters")
	}
	if validate.PasswordTooLong(in.Password) {
		return nil, validation("Password must be at most 72 bytes")
	}
	existing, err := m.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, internal("failed to look up email", err)
	}
	if existing != nil {
		return nil, validation("Email already registered")
	}

	hash, err := m.hasher.Hash(in.Password)
	if err != nil {
		return nil, internal("failed to hash password", err)
	}
	now := m.now()
	u := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Preferences:  models.DefaultPreferences(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.store.CreateUser(ctx, u); err != nil {
		return nil, internal("failed to create user", err)
	}
	m.log.Info().Stringer("user", u.ID).Msg("account registered")
	return u, nil
}

// Login checks the credentials and returns the account. Unknown addresses and wrong
// passwords fail the same way.
func (m *AccountManager) Login(ctx context.Context, email, password string) (*models.User, error) {
	if !validate.Present(email, password) {
		return nil, validation("Email and password are required")
	}
	email = validate.NormalizeEmail(email)
	if !validate.Email(email) {
		return nil, validation("Invalid email format")
	}
	u, err := m.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, internal("failed to look up email", err)
	}
	if u == nil {
		return nil, unauthenticated("Invalid credentials")
	}
	ok, err := m.hasher.Check(u.PasswordHash, password)
	if err != nil {
		return nil, internal("failed to check password", err)
	}
	if !ok {
		return nil, unauthenticated("Invalid credentials")
	}
	return u, nil
}

// Me returns the account of the resolved identity.
func (m *AccountManager) Me(ctx context.Context, userID models.UserID) (*models.User, error) {
	u, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return nil, internal("failed to load user", err)
	}
	if u == nil {
		return nil, notFound(msgUserNotFound)
	}
	return u, nil
}

// UpdateSettings changes the name, email and preferences present in in.
func (m *AccountManager) UpdateSettings(ctx context.Context, userID models.UserID, in SettingsInput) (*models.User, error) {
	u, err := m.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		if !validate.MinLength(*in.Name, 2) {
			return nil, validation("Name must be at least 2 characters long")
		}
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := validate.NormalizeEmail(*in.Email)
		if !validate.Email(email) {
			return nil, validation("Invalid email format")
		}
		if email != u.Email {
			other, err := m.store.GetUserByEmail(ctx, email)
			if err != nil {
				return nil, internal("failed to look up email", err)
			}
			if other != nil {
				return nil, validation("Email already registered")
			}
			u.Email = email
		}
	}
	if p := in.Preferences; p != nil {
		if p.Theme != nil {
			if !p.Theme.Valid() {
				return nil, validation("Invalid theme")
			}
			u.Preferences.Theme = *p.Theme
		}
		if p.Notifications != nil {
			u.Preferences.Notifications = *p.Notifications
		}
	}
	u.UpdatedAt = m.now()
	if err := m.store.UpdateUser(ctx, u); err != nil {
		return nil, updateFailed("failed to update user", msgUserNotFound, err)
	}
	return u, nil
}

// UploadAvatar stores an uploaded image as a data URI avatar.
func (m *AccountManager) UploadAvatar(ctx context.Context, userID models.UserID, contentType string, data []byte) (*models.User, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, validation("Only image files are allowed")
	}
	if len(data) == 0 {
		return nil, validation("Empty file received")
	}
	if len(data) > MaxAvatarSize {
		return nil, validation("File size must be less than 1MB")
	}
	uri := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
	return m.setAvatar(ctx, userID, uri)
}

// SetAvatarURL points the avatar at an http(s) URL.
func (m *AccountManager) SetAvatarURL(ctx context.Context, userID models.UserID, avatarURL string) (*models.User, error) {
	avatarURL = strings.TrimSpace(avatarURL)
	if avatarURL == "" {
		return nil, validation("No file or avatar URL provided")
	}
	if !validate.HTTPURL(avatarURL) {
		return nil, validation("Invalid avatar URL")
	}
	return m.setAvatar(ctx, userID, avatarURL)
}

func (m *AccountManager) setAvatar(ctx context.Context, userID models.UserID, avatar string) (*models.User, error) {
	u, err := m.Me(ctx, userID)
	if err != nil {
		return nil, err
	}
	u.Avatar = avatar
	u.UpdatedAt = m.now()
	if err := m.store.UpdateUser(ctx, u); err != nil {
		return nil, updateFailed("failed to update avatar", msgUserNotFound, err)
	}
	return u, nil
}

// DeleteAccount removes the account and everything it owns after checking the password.
func (m *AccountManager) DeleteAccount(ctx context.Context, userID models.UserID, password string) error {
	if password == "" {
		return validation("Password is required")
	}
	u, err := m.Me(ctx, userID)
	if err != nil {
		return err
	}
	ok, err := m.hasher.Check(u.PasswordHash, password)
	if err != nil {
		return internal("failed to check password", err)
	}
	if !ok {
		return unauthenticated("Incorrect password")
	}
	if err := m.store.DeleteUserCascade(ctx, userID); err != nil {
		return internal("failed to delete account", err)
	}
	m.log.Info().Stringer("user", userID).Msg("account deleted")
	return nil
}
