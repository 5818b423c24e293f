package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/tagzilla/internal/common"
	"github.com/dmitrijs2005/tagzilla/internal/cryptox"
	"github.com/dmitrijs2005/tagzilla/internal/models"
	"github.com/dmitrijs2005/tagzilla/internal/otp"
	"github.com/dmitrijs2005/tagzilla/internal/repomanager"
)

type LoginPayload struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	Account   *models.AccountView `json:"account"`
}

func (s *Service) emailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	a, err := s.repos.Accounts().GetByIndex(ctx, repomanager.IndexEmail, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return a.ID != exceptID, nil
}

// Register creates an account. It does not log the user in.
func (s *Service) Register(ctx context.Context, in RegisterInput) Result {
	in.normalize()
	if err := in.validate(s.region); err != nil {
		return s.failure(ctx, "register", err)
	}

	taken, err := s.emailTaken(ctx, in.Email, "")
	if err != nil {
		return s.failure(ctx, "register", err)
	}
	if taken {
		return s.failure(ctx, "register", common.ErrConflict)
	}

	phone := ""
	if in.Phone != "" {
		phone, _ = otp.NormalizePhone(in.Phone, s.region)
	}

	now := s.now()
	acc := &models.Account{
		Name:        in.Name,
		Email:       in.Email,
		SecretHash:  cryptox.HashSecret(in.Secret),
		PhoneNumber: phone,
		CreatedAt:   now,
		LastLogin:   now,
		Settings:    models.DefaultSettings(),
		Usage:       models.Usage{FavoriteGenres: []string{}},
	}

	acc, err = s.repos.Accounts().Create(ctx, acc)
	if err != nil {
		return s.failure(ctx, "register", err)
	}

	s.addActivity(ctx, acc.ID, models.ActivityLogin, "User Registration", "Account created", models.StatusCompleted, nil)
	s.logger.Info(ctx, "account registered", "account_id", acc.ID)

	return ok("Registration successful! Please verify your phone number.", acc.View())
}

// Login checks the secret and opens a session.
func (s *Service) Login(ctx context.Context, email, secret string) Result {
	email = normalizeEmail(email)

	acc, err := s.repos.Accounts().GetByIndex(ctx, repomanager.IndexEmail, email)
	if err != nil {
		r := s.failure(ctx, "login", err)
		if r.Code == CodeNotFound {
			return r.withMessage("User not found. Please register first.")
		}
		return r
	}

	match, err := cryptox.VerifySecret(secret, acc.SecretHash)
	if err != nil {
		return s.failure(ctx, "login", fmt.Errorf("account %s: %w", acc.ID, err))
	}
	if !match {
		s.addActivity(ctx, acc.ID, models.ActivityLogin, "User Login", "Login attempt with an invalid password", models.StatusFailed, nil)
		return s.failure(ctx, "login", common.ErrInvalidCredential)
	}

	unlock := s.lockAccount(acc.ID)
	acc, err = s.account(ctx, acc.ID)
	if err == nil {
		acc.LastLogin = s.now()
		err = s.repos.Accounts().Put(ctx, acc)
	}
	unlock()
	if err != nil {
		return s.failure(ctx, "login", err)
	}

	sess, err := s.sessions.Create(ctx, acc.ID)
	if err != nil {
		return s.failure(ctx, "login", err)
	}

	s.addActivity(ctx, acc.ID, models.ActivityLogin, "User Login", "Logged in", models.StatusCompleted, nil)

	return ok("Login successful!", &LoginPayload{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		Account:   acc.View(),
	})
}

// Logout deactivates the session. It always succeeds; failures are logged.
func (s *Service) Logout(ctx context.Context, token string) Result {
	if err := s.sessions.Deactivate(ctx, token); err != nil {
		s.logger.Warn(ctx, "logout: deactivate failed", "error", err)
	}
	return ok("Logged out successfully.", nil)
}

// Authenticate resolves a session token to its account.
func (s *Service) Authenticate(ctx context.Context, token string) Result {
	sess, err := s.sessions.Validate(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrExpired) {
			return Result{Code: CodeUnauthorized, Message: "Session expired. Please log in again."}
		}
		return s.failure(ctx, "authenticate", err)
	}

	acc, err := s.account(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return s.failure(ctx, "authenticate", common.ErrInvalidToken)
		}
		return s.failure(ctx, "authenticate", err)
	}
	return ok("Authenticated.", acc.View())
}

func (s *Service) RefreshAccount(ctx context.Context, accountID string) Result {
	acc, err := s.account(ctx, accountID)
	if err != nil {
		return s.failure(ctx, "refresh account", err)
	}
	return ok("Account loaded.", acc.View())
}

// mutate runs a read-merge-write of one account under its lock.
func (s *Service) mutate(ctx context.Context, accountID string, fn func(*models.Account) error) (*models.Account, error) {
	defer s.lockAccount(accountID)()

	acc, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if err := fn(acc); err != nil {
		return nil, err
	}
	if err := s.repos.Accounts().Put(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (s *Service) UpdateProfile(ctx context.Context, accountID string, in ProfileUpdate) Result {
	in.normalize()
	if err := in.validate(s.region); err != nil {
		return s.failure(ctx, "update profile", err)
	}

	if in.Email != nil {
		taken, err := s.emailTaken(ctx, *in.Email, accountID)
		if err != nil {
			return s.failure(ctx, "update profile", err)
		}
		if taken {
			return s.failure(ctx, "update profile", common.ErrConflict)
		}
	}

	var changed []string
	acc, err := s.mutate(ctx, accountID, func(a *models.Account) error {
		if in.Name != nil && *in.Name != a.Name {
			a.Name = *in.Name
			changed = append(changed, "name")
		}
		if in.Email != nil && *in.Email != a.Email {
			a.Email = *in.Email
			changed = append(changed, "email")
		}
		if in.Phone != nil {
			phone := ""
			if *in.Phone != "" {
				phone, _ = otp.NormalizePhone(*in.Phone, s.region)
			}
			if phone != a.PhoneNumber {
				a.PhoneNumber = phone
				a.PhoneVerified = false
				changed = append(changed, "phone")
			}
		}
		return nil
	})
	if err != nil {
		return s.failure(ctx, "update profile", err)
	}

	s.addActivity(ctx, accountID, models.ActivityProfileUpdate, "Profile Updated", "Profile information changed",
		models.StatusCompleted, map[string]any{"fields": changed})

	return ok("Profile updated successfully!", acc.View())
}

// ChangeSecret replaces the secret after checking the current one. Every
// other session of the account is deactivated; keepToken, when given,
// stays valid.
func (s *Service) ChangeSecret(ctx context.Context, accountID, current, next, keepToken string) Result {
	if err := invalidSecret(next); err != nil {
		return s.failure(ctx, "change secret", err)
	}

	acc, err := s.mutate(ctx, accountID, func(a *models.Account) error {
		match, err := cryptox.VerifySecret(current, a.SecretHash)
		if err != nil {
			return err
		}
		if !match {
			return common.ErrInvalidCredential
		}
		a.SecretHash = cryptox.HashSecret(next)
		return nil
	})
	if err != nil {
		r := s.failure(ctx, "change secret", err)
		if r.Code == CodeInvalidCredential {
			return r.withMessage("Current password is incorrect.")
		}
		return r
	}

	if n, err := s.sessions.DeactivateAll(ctx, accountID, keepToken); err != nil {
		s.logger.Warn(ctx, "change secret: failed to revoke sessions", "account_id", accountID, "revoked", n, "error", err)
	}

	s.addActivity(ctx, accountID, models.ActivitySettings, "Password Changed", "Account password updated", models.StatusCompleted, nil)

	return ok("Password changed successfully!", acc.View())
}

func invalidSecret(secret string) error {
	n := len([]rune(secret))
	if n < minSecretLength || n > maxSecretLength {
		return fmt.Errorf("%w: password: the length must be between %d and %d.", common.ErrValidation, minSecretLength, maxSecretLength)
	}
	return nil
}

func (s *Service) UpdateSettings(ctx context.Context, accountID string, in SettingsUpdate) Result {
	if err := in.validate(); err != nil {
		return s.failure(ctx, "update settings", err)
	}

	acc, err := s.mutate(ctx, accountID, func(a *models.Account) error {
		a.Settings = in.apply(a.Settings)
		return nil
	})
	if err != nil {
		return s.failure(ctx, "update settings", err)
	}

	s.addActivity(ctx, accountID, models.ActivitySettings, "Settings Updated", "Account preferences changed", models.StatusCompleted, nil)

	return ok("Settings updated successfully!", acc.View())
}

// UploadProfilePicture stores the image and points the account at it.
func (s *Service) UploadProfilePicture(ctx context.Context, accountID, contentType string, data []byte) Result {
	if s.media == nil {
		return s.failure(ctx, "upload picture", errors.New("picture storage is not configured"))
	}
	if _, err := s.account(ctx, accountID); err != nil {
		return s.failure(ctx, "upload picture", err)
	}

	ref, err := s.media.Save(ctx, accountID, contentType, data)
	if err != nil {
		return s.failure(ctx, "upload picture", err)
	}

	acc, err := s.mutate(ctx, accountID, func(a *models.Account) error {
		a.ProfilePicture = ref
		return nil
	})
	if err != nil {
		return s.failure(ctx, "upload picture", err)
	}

	s.addActivity(ctx, accountID, models.ActivityProfileUpdate, "Profile Picture Updated", "New profile picture uploaded",
		models.StatusCompleted, map[string]any{"size": len(data)})

	return ok("Profile picture updated successfully!", acc.View())
}
