package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"

	"github.com/gravitas-games/millworks/internal/config"
	"github.com/gravitas-games/millworks/pkg/models"
)

// Token validation failures
var (
	ErrTokenInvalid     = errors.New("invalid token")
	ErrUserNotActivated = errors.New("user not activated")
	ErrUserBanned       = errors.New("user is banned")
	ErrTokenBlacklisted = errors.New("token is blacklisted")
)

// Blacklist reports whether a user's tokens have been revoked.
type Blacklist interface {
	IsBlacklisted(ctx context.Context, userID string) (bool, error)
}

// RedisBlacklist looks users up under a key prefix in Redis.
type RedisBlacklist struct {
	client *redis.Client
	prefix string
}

// NewRedisBlacklist creates a blacklist backed by client.
func NewRedisBlacklist(client *redis.Client, prefix string) *RedisBlacklist {
	return &RedisBlacklist{client: client, prefix: prefix}
}

// IsBlacklisted implements Blacklist.
func (b *RedisBlacklist) IsBlacklisted(ctx context.Context, userID string) (bool, error) {
	n, err := b.client.Exists(ctx, b.prefix+userID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// JWTValidator handles JWT token validation
type JWTValidator struct {
	config    *config.Config
	publicKey *ecdsa.PublicKey
	keyMu     sync.RWMutex
	blacklist Blacklist
	logger    *slog.Logger
	now       func() time.Time
}

// Claims represents JWT token claims issued by the login server
type Claims struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	AuthMethod  string `json:"auth_method"`
	Permissions int64  `json:"permissions"`
	Activated   int64  `json:"activated"`
	jwt.RegisteredClaims
}

// NewJWTValidator creates a validator with a fixed public key. Key refresh
// is started separately with StartKeyRefresh.
func NewJWTValidator(cfg *config.Config, key *ecdsa.PublicKey, blacklist Blacklist, logger *slog.Logger) *JWTValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &JWTValidator{
		config:    cfg,
		publicKey: key,
		blacklist: blacklist,
		logger:    logger,
		now:       time.Now,
	}
}

// RefreshPublicKey fetches the public key from the configured URL
func (v *JWTValidator) RefreshPublicKey(ctx context.Context) error {
	url := v.config.JWT.PublicKeyURL
	v.logger.Info("fetching public key", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build public key request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch public key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("public key endpoint returned status %d", resp.StatusCode)
	}

	keyData, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read public key: %w", err)
	}

	key, err := ParsePublicKey(keyData)
	if err != nil {
		return err
	}

	v.keyMu.Lock()
	v.publicKey = key
	v.keyMu.Unlock()

	v.logger.Info("public key refreshed")
	return nil
}

// ParsePublicKey decodes a PEM-encoded ECDSA public key
func ParsePublicKey(data []byte) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}
	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	ecdsaKey, ok := pubKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not ECDSA")
	}
	return ecdsaKey, nil
}

// StartKeyRefresh refreshes the public key periodically until ctx is done
func (v *JWTValidator) StartKeyRefresh(ctx context.Context) {
	hours := v.config.JWT.PublicKeyRefreshHrs
	if hours <= 0 {
		return
	}
	ticker := time.NewTicker(time.Duration(hours) * time.Hour)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := v.RefreshPublicKey(ctx); err != nil {
					v.logger.Error("failed to refresh public key", "error", err)
				}
			}
		}
	}()
}

// ValidateToken validates a JWT token and returns player information
func (v *JWTValidator) ValidateToken(ctx context.Context, tokenString string) (*models.Player, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		v.keyMu.RLock()
		defer v.keyMu.RUnlock()
		if v.publicKey == nil {
			return nil, errors.New("no public key loaded")
		}
		return v.publicKey, nil
	}, jwt.WithTimeFunc(v.now), jwt.WithIssuer(v.config.JWT.Issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: bad claims", ErrTokenInvalid)
	}

	switch {
	case claims.Activated == 0:
		return nil, ErrUserNotActivated
	case claims.Activated == -1:
		return nil, ErrUserBanned
	}

	userID := strconv.FormatInt(claims.UserID, 10)
	if v.blacklist != nil {
		blacklisted, err := v.blacklist.IsBlacklisted(ctx, userID)
		if err != nil {
			// don't fail authentication if Redis is down
			v.logger.Warn("failed to check blacklist", "user", userID, "error", err)
		} else if blacklisted {
			return nil, ErrTokenBlacklisted
		}
	}

	return &models.Player{
		ID:          userID,
		Username:    claims.Username,
		Email:       claims.Email,
		Permissions: claims.Permissions,
		Activated:   claims.Activated,
		AuthMethod:  claims.AuthMethod,
	}, nil
}

// extractTokenFromHeader extracts JWT token from WebSocket connection header
func extractTokenFromHeader(r *http.Request) string {
	// Sec-WebSocket-Protocol: "access_token, <token>"
	if protocols := r.Header.Get("Sec-WebSocket-Protocol"); protocols != "" {
		parts := splitProtocols(protocols)
		if len(parts) == 2 && parts[0] == "access_token" {
			return parts[1]
		}
	}

	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && token != "" {
		return token
	}

	// query parameter (less secure, but supported)
	return r.URL.Query().Get("token")
}

// splitProtocols splits the Sec-WebSocket-Protocol header into trimmed values
func splitProtocols(protocols string) []string {
	var result []string
	for _, p := range strings.Split(protocols, ",") {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
