package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	accreditationdomain "github.com/smallbiznis/accreditation/internal/accreditation/domain"
	"github.com/smallbiznis/accreditation/internal/downstream"
	"github.com/smallbiznis/accreditation/pkg/log/ctxlogger"
)

const contextIdentityKey = "identity"

var errTokenInvalid = errors.New("invalid_token")

// Claims is the token shape issued by the identity provider. The user id
// travels in "sub".
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 bearer tokens.
type TokenVerifier struct {
	secret []byte
	issuer string
}

func NewTokenVerifier(secret, issuer string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret), issuer: strings.TrimSpace(issuer)}
}

func (v *TokenVerifier) Verify(raw string) (accreditationdomain.Identity, error) {
	if len(v.secret) == 0 {
		return accreditationdomain.Identity{}, errors.New("token secret not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return accreditationdomain.Identity{}, err
	}

	id, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || id <= 0 {
		return accreditationdomain.Identity{}, errTokenInvalid
	}
	return accreditationdomain.Identity{
		ID:    id,
		Email: strings.TrimSpace(claims.Email),
		Role:  strings.ToLower(strings.TrimSpace(claims.Role)),
	}, nil
}

// AuthRequired verifies the bearer token, stores the caller identity and
// keeps the raw token on the request context for downstream forwarding.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		identity, err := s.tokens.Verify(raw)
		if err != nil {
			ctxlogger.WithContext(c.Request.Context(), s.log).Debug("token rejected")
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := ctxlogger.ContextWithCallerID(c.Request.Context(), identity.ID)
		ctx = downstream.ContextWithBearerToken(ctx, raw)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextIdentityKey, identity)
		c.Next()
	}
}

func (s *Server) authorize(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), identity.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

func identityFromContext(c *gin.Context) (accreditationdomain.Identity, bool) {
	value, ok := c.Get(contextIdentityKey)
	if !ok {
		return accreditationdomain.Identity{}, false
	}
	identity, ok := value.(accreditationdomain.Identity)
	return identity, ok
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
