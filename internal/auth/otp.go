package auth

import (
	"context"

	"github.com/dmitrijs2005/tagzilla/internal/models"
	"github.com/dmitrijs2005/tagzilla/internal/otp"
)

func (s *Service) SendOTP(ctx context.Context, phone string) Result {
	st, err := s.otp.Send(ctx, phone)
	if err != nil {
		return s.failure(ctx, "send otp", err)
	}
	s.logger.Info(ctx, "otp sent", "verification_id", st.VerificationID)
	return ok("OTP sent successfully", st)
}

func (s *Service) VerifyOTP(ctx context.Context, phone, code, verificationID string) Result {
	if err := s.otp.Verify(ctx, phone, code, verificationID); err != nil {
		return s.failure(ctx, "verify otp", err)
	}
	return ok("OTP verified successfully", nil)
}

func (s *Service) ResendOTP(ctx context.Context, phone, verificationID string) Result {
	st, err := s.otp.Resend(ctx, phone, verificationID)
	if err != nil {
		return s.failure(ctx, "resend otp", err)
	}
	return ok("OTP resent successfully", st)
}

func (s *Service) OTPStatus(ctx context.Context, verificationID string) Result {
	st, err := s.otp.Status(ctx, verificationID)
	if err != nil {
		return s.failure(ctx, "otp status", err)
	}
	return ok("OTP is pending", st)
}

// VerifyPhone verifies the code and, on success, attaches the phone to the
// account as verified.
func (s *Service) VerifyPhone(ctx context.Context, accountID, phone, code, verificationID string) Result {
	if _, err := s.account(ctx, accountID); err != nil {
		return s.failure(ctx, "verify phone", err)
	}

	if err := s.otp.Verify(ctx, phone, code, verificationID); err != nil {
		return s.failure(ctx, "verify phone", err)
	}

	normalized := phone
	if n, err := otp.NormalizePhone(phone, s.region); err == nil {
		normalized = n
	}

	acc, err := s.mutate(ctx, accountID, func(a *models.Account) error {
		a.PhoneNumber = normalized
		a.PhoneVerified = true
		return nil
	})
	if err != nil {
		return s.failure(ctx, "verify phone", err)
	}

	s.addActivity(ctx, accountID, models.ActivityProfileUpdate, "Phone Verified", "Phone number verified",
		models.StatusCompleted, nil)

	return ok("Phone number verified successfully!", acc.View())
}
