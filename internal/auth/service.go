package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tradelog/internal/middleware"
	"tradelog/internal/models"
	"tradelog/internal/utils"
)

// Config carries the signing material and lifetimes for both token kinds.
type Config struct {
	Secret   string
	Issuer   string
	Audience string

	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	RememberMeTTL time.Duration
}

// TokenPair is what every successful issue/refresh hands back to the HTTP
// layer. RefreshToken is the opaque plaintext secret; this is the only place
// it ever exists outside the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// Service implements refresh-token issuance, rotation, revocation and reuse
// detection. It holds no mutable state of its own; everything lives in the
// stores so any number of requests can run through one instance.
type Service struct {
	cfg    Config
	tokens TokenStore
	users  UserStore
	now    func() time.Time
}

func NewService(cfg Config, tokens TokenStore, users UserStore) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.RememberMeTTL <= 0 {
		cfg.RememberMeTTL = cfg.RefreshTTL
	}
	return &Service{
		cfg:    cfg,
		tokens: tokens,
		users:  users,
		now:    time.Now,
	}, nil
}

// Issue mints a fresh access/refresh pair for an already-authenticated user.
// The refresh row starts a new token family.
func (s *Service) Issue(ctx context.Context, user models.User, rememberMe bool, ip string) (*TokenPair, error) {
	now := s.now().UTC()

	ttl := s.cfg.RefreshTTL
	if rememberMe {
		ttl = s.cfg.RememberMeTTL
	}

	secret, err := utils.GenerateSecret(utils.RefreshSecretBytes)
	if err != nil {
		return nil, fmt.Errorf("generate refresh secret: %w", err)
	}

	rec := &models.RefreshToken{
		ID:          uuid.New(),
		UserID:      user.ID,
		TokenHash:   utils.SHA256Hex(secret),
		TokenFamily: uuid.New(),
		ExpiresAt:   now.Add(ttl),
		CreatedByIP: ip,
		CreatedAt:   now,
	}
	if err := s.tokens.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	access, err := s.signAccessToken(user, now)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: secret,
		ExpiresIn:    int(s.cfg.AccessTTL.Seconds()),
	}, nil
}

// Refresh exchanges a presented refresh secret for a new pair, rotating the
// row inside its family. Presenting an already-consumed token is treated as
// theft: every active token in the family is revoked before the error is
// returned, so whoever holds the newer token is forced to log in again too.
func (s *Service) Refresh(ctx context.Context, plaintext, ip string) (*TokenPair, error) {
	now := s.now().UTC()

	rec, err := s.tokens.FindByHash(ctx, utils.SHA256Hex(plaintext))
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrInvalidToken
	}
	if !rec.ExpiresAt.After(now) {
		return nil, ErrTokenExpired
	}
	if rec.RevokedAt != nil {
		if err := s.tokens.RevokeFamily(ctx, rec.TokenFamily, now, ip); err != nil {
			return nil, err
		}
		return nil, ErrTokenReused
	}

	user, err := s.users.ByID(ctx, rec.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.IsBlocked {
		return nil, ErrInvalidToken
	}

	secret, err := utils.GenerateSecret(utils.RefreshSecretBytes)
	if err != nil {
		return nil, fmt.Errorf("generate refresh secret: %w", err)
	}

	// The replacement keeps the original validity window length so a
	// remember-me session stays long-lived across rotations.
	next := &models.RefreshToken{
		ID:          uuid.New(),
		UserID:      rec.UserID,
		TokenHash:   utils.SHA256Hex(secret),
		TokenFamily: rec.TokenFamily,
		ExpiresAt:   now.Add(rec.ExpiresAt.Sub(rec.CreatedAt)),
		CreatedByIP: ip,
		CreatedAt:   now,
	}
	rotated, err := s.tokens.Rotate(ctx, rec.ID, next, now, ip)
	if err != nil {
		return nil, err
	}
	if !rotated {
		// a concurrent request consumed this token between lookup and
		// rotation; the loser of that race is a reuse event, not a success
		if err := s.tokens.RevokeFamily(ctx, rec.TokenFamily, now, ip); err != nil {
			return nil, err
		}
		return nil, ErrTokenReused
	}

	access, err := s.signAccessToken(*user, now)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: secret,
		ExpiresIn:    int(s.cfg.AccessTTL.Seconds()),
	}, nil
}

// Logout revokes the presented token for its owner. Unknown and
// already-revoked tokens are a no-op success so repeated logouts never error.
// With all set, every active token of the caller is revoked across families.
func (s *Service) Logout(ctx context.Context, plaintext string, callerID uuid.UUID, all bool, ip string) error {
	now := s.now().UTC()

	if plaintext != "" {
		rec, err := s.tokens.FindByHash(ctx, utils.SHA256Hex(plaintext))
		if err != nil {
			return err
		}
		if rec != nil {
			if rec.UserID != callerID {
				return ErrForbidden
			}
			if rec.RevokedAt == nil {
				if _, err := s.tokens.Revoke(ctx, rec.ID, now, ip); err != nil {
					return err
				}
			}
		}
	}

	if all {
		return s.tokens.RevokeAllForUser(ctx, callerID, now, ip)
	}
	return nil
}

// RevokeAllForUser invalidates every outstanding refresh token of a user.
// Called after a password reset so a stolen password cannot be parlayed into
// a session via a previously issued token.
func (s *Service) RevokeAllForUser(ctx context.Context, userID uuid.UUID, ip string) error {
	return s.tokens.RevokeAllForUser(ctx, userID, s.now().UTC(), ip)
}

func (s *Service) signAccessToken(user models.User, now time.Time) (string, error) {
	claims := middleware.Claims{
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Audience},
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.AccessTTL)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}
