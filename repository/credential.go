package repository

import (
	"errors"

	"fido2_rp_ms/apperrors"
	"fido2_rp_ms/domain"

	"gorm.io/gorm"
)

type ICredentialRepository interface {
	ListByUser(db *gorm.DB, userID string) ([]domain.Credential, error)
	Find(db *gorm.DB, credentialID []byte, userID string) (*domain.Credential, error)
	Save(db *gorm.DB, credential *domain.Credential) error
	UpdateSignCount(db *gorm.DB, credentialID []byte, userID string, signCount uint32) error
}

type CredentialRepository struct {
}

func NewCredentialRepository() ICredentialRepository {
	return &CredentialRepository{}
}

// ListByUser returns credentials in insertion order; the ceremony layer
// builds both the exclusion and allow lists from it.
func (c *CredentialRepository) ListByUser(db *gorm.DB, userID string) ([]domain.Credential, error) {
	var credentials []domain.Credential
	err := db.Where("user_id = ?", userID).Order("id").Find(&credentials).Error
	if err != nil {
		return nil, apperrors.Wrap("list credentials", err)
	}
	return credentials, nil
}

func (c *CredentialRepository) Find(db *gorm.DB, credentialID []byte, userID string) (*domain.Credential, error) {
	var credential domain.Credential
	err := db.Where("credential_id = ? AND user_id = ?", credentialID, userID).First(&credential).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap("credential", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.Wrap("find credential", err)
	}
	return &credential, nil
}

// Save inserts a new credential. A second registration of the same
// (credentialId, userId) pair is a conflict; the unique composite index
// backs this check under concurrency.
func (c *CredentialRepository) Save(db *gorm.DB, credential *domain.Credential) error {
	var count int64
	err := db.Model(&domain.Credential{}).
		Where("credential_id = ? AND user_id = ?", credential.CredentialID, credential.UserID).
		Count(&count).Error
	if err != nil {
		return apperrors.Wrap("check credential", err)
	}
	if count > 0 {
		return apperrors.Wrap("credential", apperrors.ErrConflict)
	}
	if err := db.Create(credential).Error; err != nil {
		// a concurrent registration can slip past the count check and hit
		// the unique index instead
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Wrap("credential", apperrors.ErrConflict)
		}
		return apperrors.Wrap("save credential", err)
	}
	return nil
}

// UpdateSignCount overwrites the stored counter unconditionally; callers
// validate monotonicity through the verifier before invoking it.
func (c *CredentialRepository) UpdateSignCount(db *gorm.DB, credentialID []byte, userID string, signCount uint32) error {
	res := db.Model(&domain.Credential{}).
		Where("credential_id = ? AND user_id = ?", credentialID, userID).
		Update("sign_count", signCount)
	if res.Error != nil {
		return apperrors.Wrap("update sign count", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.Wrap("credential", apperrors.ErrNotFound)
	}
	return nil
}
