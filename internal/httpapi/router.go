// Package httpapi exposes the auth service over JSON/HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/tagzilla/internal/auth"
	"github.com/dmitrijs2005/tagzilla/internal/common"
	"github.com/dmitrijs2005/tagzilla/internal/logging"
	"github.com/dmitrijs2005/tagzilla/internal/media"
	"github.com/dmitrijs2005/tagzilla/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxJSONBody = 1 << 20

type ctxKey int

const (
	accountKey ctxKey = iota
	tokenKey
)

type Handler struct {
	svc    *auth.Service
	logger logging.Logger
}

func NewRouter(svc *auth.Service, logger logging.Logger) http.Handler {
	h := &Handler{svc: svc, logger: logger.With("component", "http")}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(h.logRequests)

	router.Get("/healthz", h.health)

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/me", h.me)
			r.Put("/profile", h.updateProfile)
			r.Put("/settings", h.updateSettings)
			r.Post("/change-password", h.changePassword)
			r.Post("/profile/picture", h.uploadPicture)
			r.Post("/phone/verify", h.verifyPhone)
		})
	})

	router.Route("/otp", func(r chi.Router) {
		r.Post("/send", h.sendOTP)
		r.Post("/verify", h.verifyOTP)
		r.Post("/resend", h.resendOTP)
		r.Get("/{verificationID}", h.otpStatus)
	})

	router.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/activities", h.listActivities)
		r.Post("/activities", h.recordActivity)
		r.Get("/analytics", h.analytics)
	})

	return router
}

var statusByCode = map[auth.Code]int{
	auth.CodeOK:                    http.StatusOK,
	auth.CodeNotReady:              http.StatusServiceUnavailable,
	auth.CodeNotFound:              http.StatusNotFound,
	auth.CodeConflict:              http.StatusConflict,
	auth.CodeInvalidCredential:     http.StatusUnauthorized,
	auth.CodeUnauthorized:          http.StatusUnauthorized,
	auth.CodeInvalidVerificationID: http.StatusNotFound,
	auth.CodeExpired:               http.StatusGone,
	auth.CodeExhausted:             http.StatusForbidden,
	auth.CodePhoneMismatch:         http.StatusBadRequest,
	auth.CodeInvalidCode:           http.StatusBadRequest,
	auth.CodeValidation:            http.StatusBadRequest,
	auth.CodeRateLimited:           http.StatusTooManyRequests,
	auth.CodeTransactionFailure:    http.StatusInternalServerError,
	auth.CodeInternal:              http.StatusInternalServerError,
}

// StatusFor maps a result code to an HTTP status.
func StatusFor(c auth.Code) int {
	if s, ok := statusByCode[c]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, r auth.Result) {
	writeJSON(w, StatusFor(r.Code), r)
}

func badRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, auth.Result{
		Code:    auth.CodeValidation,
		Message: "Invalid input: " + err.Error(),
	})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("malformed JSON body: %w", err)
	}
	return nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get(common.AuthorizationHeaderName)
	if !strings.HasPrefix(h, common.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, common.BearerPrefix))
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info(r.Context(), "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeResult(w, auth.Result{Code: auth.CodeUnauthorized, Message: "Missing bearer token."})
			return
		}

		res := h.svc.Authenticate(r.Context(), token)
		if !res.Success {
			writeResult(w, res)
			return
		}

		ctx := context.WithValue(r.Context(), accountKey, res.Payload.(*models.AccountView))
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accountFrom(ctx context.Context) *models.AccountView {
	a, _ := ctx.Value(accountKey).(*models.AccountView)
	return a
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.svc.Status())
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	res := h.svc.Register(r.Context(), in)
	if res.Success {
		writeJSON(w, http.StatusCreated, res)
		return
	}
	writeResult(w, res)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	writeResult(w, h.svc.Login(r.Context(), in.Email, in.Password))
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.svc.Logout(r.Context(), bearerToken(r)))
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.svc.RefreshAccount(r.Context(), accountFrom(r.Context()).ID))
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var in auth.ProfileUpdate
	if err := decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	writeResult(w, h.svc.UpdateProfile(r.Context(), accountFrom(r.Context()).ID, in))
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var in auth.SettingsUpdate
	if err := decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	writeResult(w, h.svc.UpdateSettings(r.Context(), accountFrom(r.Context()).ID, in))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var in changePasswordRequest
	if err := decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	ctx := r.Context()
	writeResult(w, h.svc.ChangeSecret(ctx, accountFrom(ctx).ID, in.CurrentPassword, in.NewPassword, tokenFrom(ctx)))
}

// uploadPicture takes the raw image as the request body.
func (h *Handler) uploadPicture(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, media.MaxPictureSize+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, auth.Result{
				Code:    auth.CodeValidation,
				Message: fmt.Sprintf("Invalid input: picture exceeds %d bytes", media.MaxPictureSize),
			})
			return
		}
		badRequest(w, err)
		return
	}
	ctx := r.Context()
	writeResult(w, h.svc.UploadProfilePicture(ctx, accountFrom(ctx).ID, r.Header.Get("Content-Type"), data))
}

type phoneRequest struct {
	Phone          string `json:"phone"`
	Code           string `json:"code,omitempty"`
	VerificationID string `json:"verification_id,omitempty"`
}

func (h *Handler) verifyPhone(w http.ResponseWriter, r *http.Request) {
	var in phoneRequest
	if err := decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	ctx := r.Context()
	writeResult(w, h.svc.VerifyPhone(ctx, accountFrom(ctx).ID, in.Phone, in.Code, in.VerificationID))
}

func (h *Handler) sendOTP(w http.ResponseWriter, r *http.Request) {
	var in phoneRequest
	if err := decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	writeResult(w, h.svc.SendOTP(r.Context(), in.Phone))
}

func (h *Handler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var in phoneRequest
	if err := decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	writeResult(w, h.svc.VerifyOTP(r.Context(), in.Phone, in.Code, in.VerificationID))
}

func (h *Handler) resendOTP(w http.ResponseWriter, r *http.Request) {
	var in phoneRequest
	if err := decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	writeResult(w, h.svc.ResendOTP(r.Context(), in.Phone, in.VerificationID))
}

func (h *Handler) otpStatus(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.svc.OTPStatus(r.Context(), chi.URLParam(r, "verificationID")))
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := auth.ActivityFilter{
		Type:   models.ActivityType(q.Get("type")),
		Status: models.ActivityStatus(q.Get("status")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, fmt.Errorf("limit must be a non-negative integer"))
			return
		}
		f.Limit = n
	}
	writeResult(w, h.svc.Activities(r.Context(), accountFrom(r.Context()).ID, f))
}

func (h *Handler) recordActivity(w http.ResponseWriter, r *http.Request) {
	var in auth.ActivityInput
	if err := decode(r, &in); err != nil {
		badRequest(w, err)
		return
	}
	res := h.svc.RecordActivity(r.Context(), accountFrom(r.Context()).ID, in)
	if res.Success {
		writeJSON(w, http.StatusCreated, res)
		return
	}
	writeResult(w, res)
}

func (h *Handler) analytics(w http.ResponseWriter, r *http.Request) {
	writeResult(w, h.svc.Analytics(r.Context(), accountFrom(r.Context()).ID))
}
