// Package models holds the persisted entities: accounts, sessions and
// activities.
package models

import "time"

const (
	ThemeLight = "light"
	ThemeDark  = "dark"

	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

type Privacy struct {
	ProfileVisibility  string `json:"profile_visibility"`
	ActivityVisibility string `json:"activity_visibility"`
}

type Settings struct {
	Theme         string  `json:"theme"`
	Notifications bool    `json:"notifications"`
	Privacy       Privacy `json:"privacy"`
}

// Usage holds the account's analysis counters.
type Usage struct {
	TotalAnalyses   int      `json:"total_analyses"`
	TotalUploads    int      `json:"total_uploads"`
	AverageAccuracy float64  `json:"average_accuracy"`
	FavoriteGenres  []string `json:"favorite_genres"`
}

type Account struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	SecretHash     string    `json:"secret_hash"`
	PhoneNumber    string    `json:"phone_number,omitempty"`
	PhoneVerified  bool      `json:"phone_verified"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastLogin      time.Time `json:"last_login"`
	Settings       Settings  `json:"settings"`
	Usage          Usage     `json:"usage"`
}

// DefaultSettings are applied to every new account.
func DefaultSettings() Settings {
	return Settings{
		Theme:         ThemeLight,
		Notifications: true,
		Privacy: Privacy{
			ProfileVisibility:  VisibilityPublic,
			ActivityVisibility: VisibilityPublic,
		},
	}
}

// AccountView is the caller-visible snapshot of an account. It never
// carries the secret hash.
type AccountView struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PhoneNumber    string    `json:"phone_number,omitempty"`
	PhoneVerified  bool      `json:"phone_verified"`
	ProfilePicture string    `json:"profile_picture,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastLogin      time.Time `json:"last_login"`
	Settings       Settings  `json:"settings"`
	Usage          Usage     `json:"usage"`
}

func (a *Account) View() *AccountView {
	genres := append([]string{}, a.Usage.FavoriteGenres...)
	usage := a.Usage
	usage.FavoriteGenres = genres

	return &AccountView{
		ID:             a.ID,
		Name:           a.Name,
		Email:          a.Email,
		PhoneNumber:    a.PhoneNumber,
		PhoneVerified:  a.PhoneVerified,
		ProfilePicture: a.ProfilePicture,
		CreatedAt:      a.CreatedAt,
		LastLogin:      a.LastLogin,
		Settings:       a.Settings,
		Usage:          usage,
	}
}
