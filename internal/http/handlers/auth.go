package handlers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/bhoomi-id/bhoomi/internal/app"
	"github.com/bhoomi-id/bhoomi/internal/cache"
	httpx "github.com/bhoomi-id/bhoomi/internal/http/httpx"
	"github.com/bhoomi-id/bhoomi/internal/observability/logger"
	"github.com/bhoomi-id/bhoomi/internal/security/password"
	"github.com/bhoomi-id/bhoomi/internal/store/core"
	"github.com/bhoomi-id/bhoomi/internal/validation"
)

var phoneRe = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

func otpKey(phone string) string { return "otp:" + phone }

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

type registerIn struct {
	FullName     string `json:"full_name"`
	Phone        string `json:"phone_number"`
	Email        string `json:"email,omitempty"`
	Password     string `json:"password"`
	Aadhaar      string `json:"aadhaar_number,omitempty"`
	LandRecordID string `json:"land_record_id,omitempty"`
}

// NewRegisterHandler maneja POST /v1/auth/register. Crea el subject con el
// password hasheado y los campos sensibles cifrados, y dispara el OTP de
// verificación al canal configurado.
func NewRegisterHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in registerIn
		if !httpx.ReadJSON(w, r, &in) {
			return
		}
		in.Phone = strings.TrimSpace(in.Phone)
		in.FullName = strings.TrimSpace(in.FullName)

		switch {
		case in.FullName == "":
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", "full_name requerido", httpx.CodeValidation)
			return
		case !phoneRe.MatchString(in.Phone):
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", "phone_number inválido", httpx.CodeValidation)
			return
		case len(in.Password) < c.Cfg.Security.PasswordMinLength:
			httpx.WriteError(w, http.StatusBadRequest, "validation_error",
				fmt.Sprintf("password: mínimo %d caracteres", c.Cfg.Security.PasswordMinLength), httpx.CodeValidation)
			return
		}

		hash, err := password.Hash(password.Default, in.Password)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}

		sub := &core.Subject{
			FullName:     in.FullName,
			Phone:        in.Phone,
			PasswordHash: hash,
			Active:       true,
		}
		if e := strings.TrimSpace(in.Email); e != "" {
			sub.Email = &e
		}
		if in.Aadhaar != "" {
			enc, err := c.Box.Encrypt(in.Aadhaar)
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			h := c.Box.BlindIndex(in.Aadhaar)
			sub.AadhaarEnc, sub.AadhaarHash = &enc, &h
		}
		if in.LandRecordID != "" {
			enc, err := c.Box.Encrypt(in.LandRecordID)
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			sub.LandRecordEnc = &enc
		}

		if err := c.Store.CreateSubject(r.Context(), sub); err != nil {
			if errors.Is(err, core.ErrConflict) {
				httpx.WriteError(w, http.StatusConflict, "conflict", "phone o email ya registrados", httpx.CodeConflict)
				return
			}
			httpx.WriteDomainError(w, err)
			return
		}

		// OTP efímero: vive en cache hasta que se verifica o expira
		code, err := generateOTP()
		if err == nil {
			_ = c.Cache.Set(r.Context(), otpKey(sub.Phone), code, c.Cfg.OTPTTL())
			to := sub.Phone
			if sub.Email != nil {
				to = *sub.Email
			}
			if err := c.Email.SendOTP(r.Context(), to, code); err != nil {
				logger.From(r.Context()).Warn("otp_send_failed", zap.Error(err))
			}
		}

		httpx.WriteJSON(w, http.StatusCreated, sub)
	}
}

type verifyOTPIn struct {
	Phone string `json:"phone_number"`
	Code  string `json:"code"`
}

// NewVerifyOTPHandler maneja POST /v1/auth/verify-otp.
func NewVerifyOTPHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in verifyOTPIn
		if !httpx.ReadJSON(w, r, &in) {
			return
		}
		want, err := c.Cache.Get(r.Context(), otpKey(in.Phone))
		if err != nil || want == "" || want != strings.TrimSpace(in.Code) {
			if errors.Is(err, cache.ErrNotFound) || err == nil {
				httpx.WriteError(w, http.StatusBadRequest, "invalid_otp", "código inválido o expirado", httpx.CodeValidation)
				return
			}
			httpx.WriteDomainError(w, err)
			return
		}

		sub, err := c.Store.GetSubjectByPhone(r.Context(), in.Phone)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		if err := c.Store.MarkSubjectVerified(r.Context(), sub.ID); err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		_ = c.Cache.Delete(r.Context(), otpKey(in.Phone))

		httpx.WriteJSON(w, http.StatusOK, map[string]any{"verified": true})
	}
}

type loginIn struct {
	Phone    string `json:"phone_number"`
	Password string `json:"password"`
}

// NewLoginHandler maneja POST /v1/auth/login. Emite un credential first-party
// (sin azp) con el vocabulario completo: el subject siempre ve sus propios
// datos.
func NewLoginHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in loginIn
		if !httpx.ReadJSON(w, r, &in) {
			return
		}

		sub, err := c.Store.GetSubjectByPhone(r.Context(), strings.TrimSpace(in.Phone))
		if err != nil || !sub.Active || !password.Verify(in.Password, sub.PasswordHash) {
			// respuesta uniforme: no filtrar si el phone existe
			httpx.WriteError(w, http.StatusUnauthorized, "invalid_login", "phone o password incorrectos", httpx.CodeUnauthorized)
			return
		}
		if !sub.Verified {
			httpx.WriteError(w, http.StatusForbidden, "not_verified", "cuenta sin verificar; completá el OTP", httpx.CodeAccessDenied)
			return
		}

		tok, exp, err := c.Issuer.Issue(sub.ID, validation.Vocabulary(), nil, 0)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"access_token": tok,
			"token_type":   "Bearer",
			"expires_at":   exp,
		})
	}
}

// NewMeHandler maneja GET /v1/me.
func NewMeHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authSubject(c, w, r)
		if !ok {
			return
		}
		sub, err := c.Store.GetSubjectByID(r.Context(), claims.SubjectID)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, sub)
	}
}

type profileIn struct {
	FullName     *string        `json:"full_name,omitempty"`
	Email        *string        `json:"email,omitempty"`
	ProfilePhoto *string        `json:"profile_photo,omitempty"`
	Location     *string        `json:"location,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
}

// NewUpdateProfileHandler maneja PATCH /v1/me.
func NewUpdateProfileHandler(c *app.Container) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := authSubject(c, w, r)
		if !ok {
			return
		}
		var in profileIn
		if !httpx.ReadJSON(w, r, &in) {
			return
		}

		updates := map[string]any{}
		if in.FullName != nil {
			updates["full_name"] = *in.FullName
		}
		if in.Email != nil {
			updates["email"] = *in.Email
		}
		if in.ProfilePhoto != nil {
			updates["profile_photo"] = *in.ProfilePhoto
		}
		if in.Location != nil {
			updates["location"] = *in.Location
		}
		if in.Attributes != nil {
			updates["attributes"] = in.Attributes
		}
		if len(updates) == 0 {
			httpx.WriteError(w, http.StatusBadRequest, "validation_error", "nada para actualizar", httpx.CodeValidation)
			return
		}

		if err := c.Store.UpdateSubject(r.Context(), claims.SubjectID, updates); err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		sub, err := c.Store.GetSubjectByID(r.Context(), claims.SubjectID)
		if err != nil {
			httpx.WriteDomainError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, sub)
	}
}
