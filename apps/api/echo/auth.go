package echoapi

import (
	"sort"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
)

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleParent  = "parent"

	claimsContextKey = "userToken"
)

// Claims represents the authorization claims transmitted via a JWT.
// Accounts live outside this service; Subject is the caller's external id.
type Claims struct {
	jwt.StandardClaims
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

func newJWTConfig(secretKey string) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(secretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    claimsContextKey,
		Claims:        new(Claims),
	}
}

// NewClaims returns claims for subject valid for ttl.
func NewClaims(issuer, subject, name string, ttl time.Duration, roles ...string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:  name,
		Roles: roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// RollbarPerson identifies the caller on error reports.
func (c Claims) RollbarPerson() (id, username, email string) {
	return c.Subject, c.Name, c.Email
}

// author is what gets recorded as the writer of a mark.
func (c Claims) author() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Subject
}

func (c Claims) hasAnyRole(roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	have := append([]string(nil), c.Roles...)
	sort.Strings(have)
	for _, role := range roles {
		if i := sort.SearchStrings(have, role); i < len(have) && have[i] == role {
			return true
		}
	}
	return false
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(claimsContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// callerName is the name recorded on writes; empty when unauthenticated.
func callerName(ctx echo.Context) string {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return ""
	}
	return claims.author()
}
