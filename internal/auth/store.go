package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"tradelog/internal/models"
)

// TokenStore is the persistence surface the lifecycle service needs. All
// revocation writes are conditional on revoked_at IS NULL so a row is revoked
// at most once and concurrent rotations of the same token resolve to exactly
// one winner.
type TokenStore interface {
	// FindByHash returns the token row for a hash, or nil when absent.
	FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	Insert(ctx context.Context, token *models.RefreshToken) error
	// Revoke marks a single token revoked iff it is still unrevoked and
	// reports whether this call was the one that revoked it.
	Revoke(ctx context.Context, id uuid.UUID, at time.Time, ip string) (bool, error)
	// Rotate atomically revokes the presented token and inserts its
	// replacement. It reports false, without inserting, when the old token
	// was already revoked by a concurrent request.
	Rotate(ctx context.Context, oldID uuid.UUID, next *models.RefreshToken, at time.Time, ip string) (bool, error)
	// RevokeFamily revokes every active token in a family.
	RevokeFamily(ctx context.Context, family uuid.UUID, at time.Time, ip string) error
	// RevokeAllForUser revokes every active token of a user across families.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, at time.Time, ip string) error
}

// UserStore resolves token owners for claim minting. Nil result means the
// user does not exist.
type UserStore interface {
	ByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type GormTokenStore struct {
	DB *gorm.DB
}

func NewGormTokenStore(db *gorm.DB) *GormTokenStore {
	return &GormTokenStore{DB: db}
}

func (s *GormTokenStore) FindByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := s.DB.WithContext(ctx).Where("token_hash = ?", hash).First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *GormTokenStore) Insert(ctx context.Context, token *models.RefreshToken) error {
	return s.DB.WithContext(ctx).Create(token).Error
}

func (s *GormTokenStore) Revoke(ctx context.Context, id uuid.UUID, at time.Time, ip string) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Updates(revocation(at, ip))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormTokenStore) Rotate(ctx context.Context, oldID uuid.UUID, next *models.RefreshToken, at time.Time, ip string) (bool, error) {
	rotated := false
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", oldID).
			Updates(revocation(at, ip))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// someone else consumed the token first; leave the family to the
			// caller's reuse handling
			return nil
		}
		if err := tx.Create(next).Error; err != nil {
			return err
		}
		rotated = true
		return nil
	})
	return rotated, err
}

func (s *GormTokenStore) RevokeFamily(ctx context.Context, family uuid.UUID, at time.Time, ip string) error {
	return s.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_family = ? AND revoked_at IS NULL", family).
		Updates(revocation(at, ip)).Error
}

func (s *GormTokenStore) RevokeAllForUser(ctx context.Context, userID uuid.UUID, at time.Time, ip string) error {
	return s.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Updates(revocation(at, ip)).Error
}

func revocation(at time.Time, ip string) map[string]interface{} {
	updates := map[string]interface{}{"revoked_at": &at}
	if ip != "" {
		updates["revoked_by_ip"] = &ip
	}
	return updates
}

type GormUserStore struct {
	DB *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{DB: db}
}

func (s *GormUserStore) ByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
