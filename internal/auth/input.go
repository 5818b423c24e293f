package auth

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/tagzilla/internal/common"
	"github.com/dmitrijs2005/tagzilla/internal/models"
	"github.com/dmitrijs2005/tagzilla/internal/otp"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"golang.org/x/text/unicode/norm"
)

const (
	minSecretLength = 8
	maxSecretLength = 128
	maxNameLength   = 100
)

type RegisterInput struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Secret string `json:"password"`
	Phone  string `json:"phone,omitempty"`
}

func (in *RegisterInput) normalize() {
	in.Name = normalizeName(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
}

func (in RegisterInput) validate(region string) error {
	return invalid(validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(1, maxNameLength)),
		validation.Field(&in.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&in.Secret, validation.Required, validation.RuneLength(minSecretLength, maxSecretLength)),
		validation.Field(&in.Phone, validation.By(possiblePhone(region))),
	))
}

// ProfileUpdate carries the fields to change; nil means keep.
type ProfileUpdate struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

func (in *ProfileUpdate) normalize() {
	if in.Name != nil {
		v := normalizeName(*in.Name)
		in.Name = &v
	}
	if in.Email != nil {
		v := normalizeEmail(*in.Email)
		in.Email = &v
	}
	if in.Phone != nil {
		v := strings.TrimSpace(*in.Phone)
		in.Phone = &v
	}
}

func (in ProfileUpdate) validate(region string) error {
	return invalid(validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.NilOrNotEmpty, validation.RuneLength(1, maxNameLength)),
		validation.Field(&in.Email, validation.NilOrNotEmpty, validation.Length(3, 254), is.Email),
		validation.Field(&in.Phone, validation.By(possiblePhone(region))),
	))
}

// SettingsUpdate is merged into the stored settings; nil means keep.
type SettingsUpdate struct {
	Theme              *string `json:"theme,omitempty"`
	Notifications      *bool   `json:"notifications,omitempty"`
	ProfileVisibility  *string `json:"profile_visibility,omitempty"`
	ActivityVisibility *string `json:"activity_visibility,omitempty"`
}

func (in SettingsUpdate) validate() error {
	return invalid(validation.ValidateStruct(&in,
		validation.Field(&in.Theme, validation.In(models.ThemeLight, models.ThemeDark)),
		validation.Field(&in.ProfileVisibility, validation.In(models.VisibilityPublic, models.VisibilityPrivate)),
		validation.Field(&in.ActivityVisibility, validation.In(models.VisibilityPublic, models.VisibilityPrivate)),
	))
}

func (in SettingsUpdate) apply(s models.Settings) models.Settings {
	if in.Theme != nil {
		s.Theme = *in.Theme
	}
	if in.Notifications != nil {
		s.Notifications = *in.Notifications
	}
	if in.ProfileVisibility != nil {
		s.Privacy.ProfileVisibility = *in.ProfileVisibility
	}
	if in.ActivityVisibility != nil {
		s.Privacy.ActivityVisibility = *in.ActivityVisibility
	}
	return s
}

type ActivityInput struct {
	Type        models.ActivityType   `json:"type"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      models.ActivityStatus `json:"status,omitempty"`
	Metadata    map[string]any        `json:"metadata,omitempty"`
}

func (in ActivityInput) validate() error {
	return invalid(validation.ValidateStruct(&in,
		validation.Field(&in.Type, validation.Required, validation.By(func(v interface{}) error {
			if t, _ := v.(models.ActivityType); !t.Valid() {
				return fmt.Errorf("unknown activity type %q", t)
			}
			return nil
		})),
		validation.Field(&in.Title, validation.Required, validation.RuneLength(1, 200)),
		validation.Field(&in.Status, validation.By(func(v interface{}) error {
			if s, _ := v.(models.ActivityStatus); s != "" && !s.Valid() {
				return fmt.Errorf("unknown activity status %q", s)
			}
			return nil
		})),
	))
}

// ActivityFilter narrows an activity listing. Zero values match everything.
type ActivityFilter struct {
	Type   models.ActivityType
	Status models.ActivityStatus
	Limit  int
}

func (f ActivityFilter) match(a *models.Activity) bool {
	if f.Type != "" && a.Type != f.Type {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(name)), " ")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func possiblePhone(region string) validation.RuleFunc {
	return func(value interface{}) error {
		var phone string
		switch v := value.(type) {
		case string:
			phone = v
		case *string:
			if v == nil {
				return nil
			}
			phone = *v
		}
		if phone == "" {
			return nil
		}
		if _, err := otp.NormalizePhone(phone, region); err != nil {
			return fmt.Errorf("must be a valid phone number")
		}
		return nil
	}
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", common.ErrValidation, err)
}

func validationMessage(err error) string {
	return "Invalid input: " + strings.TrimPrefix(err.Error(), common.ErrValidation.Error()+": ")
}
