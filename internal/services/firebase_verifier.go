package services

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

const (
	firebaseIssuerPrefix = "https://securetoken.google.com/"
	defaultKeysMaxAge    = time.Hour
)

// FederatedIdentity is what a verified third-party identity token asserts.
type FederatedIdentity struct {
	Email       string
	DisplayName string
	PictureURL  string
}

// IdentityVerifier validates an externally issued identity token.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*FederatedIdentity, error)
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type firebaseClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	jwt.RegisteredClaims
}

// jwksCache holds the signing keys for Firebase ID tokens. Keys expire per the
// endpoint's Cache-Control max-age; lookups of an unknown kid trigger at most
// one refetch per throttle interval.
type jwksCache struct {
	url        string
	httpClient *http.Client
	throttle   *rate.Limiter
	now        func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
}

func newJWKSCache(url string, httpClient *http.Client) *jwksCache {
	return &jwksCache{
		url:        url,
		httpClient: httpClient,
		throttle:   rate.NewLimiter(rate.Every(time.Minute), 1),
		now:        time.Now,
		keys:       make(map[string]*rsa.PublicKey),
	}
}

func (c *jwksCache) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	fresh := c.now().Before(c.expiresAt)
	c.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}
	if fresh && !c.throttle.Allow() {
		return nil, fmt.Errorf("public key with kid %s not found", kid)
	}

	if err := c.fetch(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if key, ok := c.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("public key with kid %s not found", kid)
}

func (c *jwksCache) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build JWKS request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var set jwkSet
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("failed to decode JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := parseRSAPublicKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	c.mu.Lock()
	c.keys = keys
	c.expiresAt = c.now().Add(maxAge(resp.Header.Get("Cache-Control")))
	c.mu.Unlock()
	return nil
}

func maxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultKeysMaxAge
}

func parseRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	var e int
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

// FirebaseVerifier verifies Firebase Authentication ID tokens, the tokens a
// client receives after Google sign-in.
type FirebaseVerifier struct {
	projectID string
	keys      *jwksCache
	timeout   time.Duration
}

func NewFirebaseVerifier(projectID, jwksURL string, timeout time.Duration) *FirebaseVerifier {
	return &FirebaseVerifier{
		projectID: projectID,
		keys:      newJWKSCache(jwksURL, &http.Client{Timeout: timeout}),
		timeout:   timeout,
	}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*FederatedIdentity, error) {
	if idToken == "" {
		return nil, fmt.Errorf("%w: empty identity token", ErrFederatedAuthFailed)
	}
	if v.projectID == "" {
		return nil, fmt.Errorf("%w: firebase project not configured", ErrFederatedAuthFailed)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	claims := &firebaseClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims,
		func(t *jwt.Token) (interface{}, error) {
			kid, _ := t.Header["kid"].(string)
			return v.keys.key(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(firebaseIssuerPrefix+v.projectID),
		jwt.WithAudience(v.projectID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.keys.now),
	)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrFederatedAuthFailed, err)
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("%w: token has no email", ErrFederatedAuthFailed)
	}

	name := claims.Name
	if name == "" {
		name, _, _ = strings.Cut(claims.Email, "@")
	}

	return &FederatedIdentity{
		Email:       claims.Email,
		DisplayName: name,
		PictureURL:  largePicture(claims.Picture),
	}, nil
}

// largePicture swaps Google's 96px avatar variant for the 384px one.
func largePicture(url string) string {
	return strings.Replace(url, "s96-c", "s384-c", 1)
}
