package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/imyashkale/sitebuilder/internal/logger"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
	ErrMissingUserID     = errors.New("missing user ID in token")
)

const bearerPrefix = "Bearer "

// JWKSet represents a JSON Web Key Set
type JWKSet struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kid string   `json:"kid"`
	Kty string   `json:"kty"`
	Use string   `json:"use"`
	N   string   `json:"n"`
	E   string   `json:"e"`
	X5c []string `json:"x5c"`
}

// Auth0Config holds Auth0 configuration
type Auth0Config struct {
	Domain   string
	Audience string
}

// NewAuth0Config creates a new Auth0 configuration
func NewAuth0Config(domain, audience string) *Auth0Config {
	return &Auth0Config{
		Domain:   domain,
		Audience: audience,
	}
}

// Authenticate picks full Auth0 verification when a domain is configured and
// the unverified development mode otherwise
func Authenticate(config *Auth0Config) gin.HandlerFunc {
	if config != nil && config.Domain != "" {
		return AuthenticationWithAuth0(config)
	}
	logger.Warn("AUTH0_DOMAIN not set, bearer tokens are decoded without signature verification")
	return Authentication()
}

// bearerToken extracts the token from the Authorization header
func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}
	if !strings.HasPrefix(authHeader, bearerPrefix) || len(authHeader) == len(bearerPrefix) {
		return "", ErrInvalidAuthHeader
	}
	return authHeader[len(bearerPrefix):], nil
}

// abortUnauthorized ends the request with a 401 JSON body
func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   code,
		"message": message,
	})
}

// setIdentity stores the caller's subject for handlers
func setIdentity(c *gin.Context, claims jwt.MapClaims) bool {
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		logger.WithField("path", c.Request.URL.Path).Warn("Authentication failed: missing user ID in token")
		abortUnauthorized(c, "invalid_token", ErrMissingUserID.Error())
		return false
	}

	c.Set("user_id", sub)
	c.Set("token_claims", claims)
	return true
}

// Authentication decodes bearer JWTs without verifying their signature.
// Only the expiry and subject are checked; use AuthenticationWithAuth0 in production.
func Authentication() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			logger.WithField("path", c.Request.URL.Path).Warn("Authentication failed: missing or invalid authorization header")
			abortUnauthorized(c, "unauthorized", "Missing or invalid authorization header")
			return
		}

		// Check if token has the correct structure (header.payload.signature)
		parts := strings.Split(tokenString, ".")
		if len(parts) != 3 {
			logger.WithFields(map[string]interface{}{
				"path":        c.Request.URL.Path,
				"parts_count": len(parts),
			}).Warn("Authentication failed: malformed token")
			abortUnauthorized(c, "malformed_token", fmt.Sprintf("JWT token must have 3 parts (header.payload.signature), got %d part(s)", len(parts)))
			return
		}

		parser := jwt.NewParser(jwt.WithoutClaimsValidation())
		token, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
		if err != nil || token == nil {
			logger.Debugf("Token parse error: %v", err)
			abortUnauthorized(c, "invalid_token", "Failed to parse token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "invalid_token", "Invalid token claims")
			return
		}

		if exp, ok := claims["exp"].(float64); ok && time.Now().Unix() > int64(exp) {
			logger.WithField("path", c.Request.URL.Path).Warn("Authentication failed: token expired")
			abortUnauthorized(c, "token_expired", "Token has expired")
			return
		}

		if !setIdentity(c, claims) {
			return
		}

		logger.WithFields(map[string]interface{}{
			"user_id": c.GetString("user_id"),
			"path":    c.Request.URL.Path,
		}).Debug("Authentication successful")

		c.Next()
	}
}

// AuthenticationWithAuth0 validates RS256 tokens against the Auth0 JWKS,
// issuer and audience
func AuthenticationWithAuth0(config *Auth0Config) gin.HandlerFunc {
	jwks := &jwksFetcher{
		url:    fmt.Sprintf("https://%s/.well-known/jwks.json", config.Domain),
		client: &http.Client{Timeout: 10 * time.Second},
	}
	expectedIssuer := fmt.Sprintf("https://%s/", config.Domain)

	return func(c *gin.Context) {
		tokenString, err := bearerToken(c)
		if err != nil {
			logger.WithField("path", c.Request.URL.Path).Warn("Auth0 authentication failed: missing or invalid authorization header")
			abortUnauthorized(c, "unauthorized", "Missing or invalid authorization header")
			return
		}

		opts := []jwt.ParserOption{
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithIssuer(expectedIssuer),
		}
		if config.Audience != "" {
			opts = append(opts, jwt.WithAudience(config.Audience))
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			cert, err := jwks.pemCert(token)
			if err != nil {
				return nil, err
			}
			return jwt.ParseRSAPublicKeyFromPEM([]byte(cert))
		}, opts...)
		if err != nil || !token.Valid {
			msg := "Token is not valid"
			if err != nil {
				msg = err.Error()
			}
			logger.WithFields(map[string]interface{}{
				"path":  c.Request.URL.Path,
				"error": msg,
			}).Warn("Auth0 authentication failed: token validation error")
			abortUnauthorized(c, "invalid_token", msg)
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "invalid_token", "Invalid token claims")
			return
		}

		if !setIdentity(c, claims) {
			return
		}

		c.Next()
	}
}

// jwksFetcher resolves signing certificates from a JWKS endpoint
type jwksFetcher struct {
	url    string
	client *http.Client
}

// pemCert returns the PEM certificate matching the token's kid
func (f *jwksFetcher) pemCert(token *jwt.Token) (string, error) {
	kid, ok := token.Header["kid"].(string)
	if !ok {
		return "", errors.New("missing kid in token header")
	}

	resp, err := f.client.Get(f.url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("jwks endpoint returned status %d", resp.StatusCode)
	}

	var jwks JWKSet
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return "", err
	}

	for _, key := range jwks.Keys {
		if key.Kid == kid && len(key.X5c) > 0 {
			return fmt.Sprintf("-----BEGIN CERTIFICATE-----\n%s\n-----END CERTIFICATE-----", key.X5c[0]), nil
		}
	}

	return "", errors.New("unable to find appropriate key")
}
