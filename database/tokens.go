package database

import (
	"time"

	"gorm.io/gorm"

	"reelfeed/models"
)

// TokenStore reads and writes the viewer's access token on the AppConfig
// row. It implements api.TokenSource.
type TokenStore struct {
	DB *gorm.DB
}

// AccessToken returns the stored token, or "" when the viewer is logged out.
func (t *TokenStore) AccessToken() (string, error) {
	var cfg models.AppConfig
	if err := t.DB.First(&cfg).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", nil
		}
		return "", err
	}
	return cfg.AccessToken, nil
}

// SetToken stores a new token and marks the account connected.
func (t *TokenStore) SetToken(token, handle string) error {
	var cfg models.AppConfig
	if err := t.DB.FirstOrCreate(&cfg).Error; err != nil {
		return err
	}
	cfg.AccessToken = token
	cfg.AccountHandle = handle
	cfg.IsConnected = token != ""
	cfg.TokenUpdatedAt = time.Now()
	return t.DB.Save(&cfg).Error
}

// ClearToken logs the viewer out.
func (t *TokenStore) ClearToken() error {
	return t.SetToken("", "")
}
