// Package credential emite y verifica el bearer token que transporta un
// snapshot de scopes. El token es autocontenido (HS256 con secreto de
// proceso): la firma se verifica sin tocar el store, y por eso mismo todo
// read sensible re-chequea el ledger — el snapshot no se achica solo si el
// consent se revoca después de emitido.
package credential

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/bhoomi-id/bhoomi/internal/validation"
)

// ErrInvalidCredential: firma inválida, payload malformado o expirado.
// Falla cerrado; nunca se confía parcialmente en un token anómalo.
var ErrInvalidCredential = errors.New("invalid credential")

// DefaultTTL es la ventana corta por defecto. Mantenerla corta acota el
// riesgo de un token emitido justo antes de un revoke (no hay revocation
// list; ver DESIGN.md).
const DefaultTTL = 30 * time.Minute

// Claims es el contenido verificado de un credential.
type Claims struct {
	SubjectID       int64
	Scopes          []validation.Scope
	AuthorizedParty *int64 // service id (azp); nil para tokens first-party
	IssuedAt        time.Time
	ExpiresAt       time.Time
}

// Issuer firma credentials con un secreto simétrico de proceso.
type Issuer struct {
	secret []byte
	iss    string
	ttl    time.Duration
}

func NewIssuer(secret []byte, iss string, ttl time.Duration) (*Issuer, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("credential: secret must be at least 32 bytes, got %d", len(secret))
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{secret: secret, iss: iss, ttl: ttl}, nil
}

// TTL expone el ttl por defecto configurado.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue codifica {sub, iat, exp, scope, azp?} y firma. ttl<=0 usa el default.
func (i *Issuer) Issue(subjectID int64, scopes []validation.Scope, azp *int64, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = i.ttl
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)

	claims := jwtv5.MapClaims{
		"iss":   i.iss,
		"sub":   strconv.FormatInt(subjectID, 10),
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
		"scope": validation.JoinScopes(scopes),
	}
	if azp != nil {
		claims["azp"] = strconv.FormatInt(*azp, 10)
	}

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify chequea firma y expiración y decodifica los claims. Cualquier
// anomalía (alg inesperado, sub no numérico, scope fuera de vocabulario)
// devuelve ErrInvalidCredential.
func (i *Issuer) Verify(tokenStr string) (*Claims, error) {
	tk, err := jwtv5.Parse(tokenStr,
		func(t *jwtv5.Token) (any, error) { return i.secret, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithExpirationRequired(),
	)
	if err != nil || !tk.Valid {
		return nil, ErrInvalidCredential
	}
	mc, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidCredential
	}

	subStr, ok := mc["sub"].(string)
	if !ok {
		return nil, ErrInvalidCredential
	}
	sub, err := strconv.ParseInt(subStr, 10, 64)
	if err != nil {
		return nil, ErrInvalidCredential
	}

	scopeStr, _ := mc["scope"].(string)
	scopes, err := validation.ParseScopeString(scopeStr)
	if err != nil {
		return nil, ErrInvalidCredential
	}

	out := &Claims{SubjectID: sub, Scopes: scopes}

	if azpStr, ok := mc["azp"].(string); ok && azpStr != "" {
		azp, err := strconv.ParseInt(azpStr, 10, 64)
		if err != nil {
			return nil, ErrInvalidCredential
		}
		out.AuthorizedParty = &azp
	}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
