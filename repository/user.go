package repository

import (
	"errors"

	"fido2_rp_ms/apperrors"
	"fido2_rp_ms/domain"
	"fido2_rp_ms/util"

	"gorm.io/gorm"
)

type IUserRepository interface {
	GetByUsername(db *gorm.DB, username string) (*domain.User, error)
	GetByUserID(db *gorm.DB, userID string) (*domain.User, error)
	GetOrCreate(db *gorm.DB, username, displayName string) (*domain.User, error)
}

type UserRepository struct {
}

func NewUserRepository() IUserRepository {
	return &UserRepository{}
}

func (u *UserRepository) GetByUsername(db *gorm.DB, username string) (*domain.User, error) {
	var user domain.User
	err := db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap("user "+username, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.Wrap("get user by username", err)
	}
	return &user, nil
}

func (u *UserRepository) GetByUserID(db *gorm.DB, userID string) (*domain.User, error) {
	var user domain.User
	err := db.Where("user_id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap("user", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, apperrors.Wrap("get user by id", err)
	}
	return &user, nil
}

// GetOrCreate is idempotent on username; a repeat call with a different
// display name returns the stored record unchanged.
func (u *UserRepository) GetOrCreate(db *gorm.DB, username, displayName string) (*domain.User, error) {
	user, err := u.GetByUsername(db, username)
	if err == nil {
		return user, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}

	userID, err := util.GenerateUserID()
	if err != nil {
		return nil, apperrors.Wrap("generate user id", err)
	}
	created := &domain.User{
		UserID:      userID,
		Username:    username,
		DisplayName: displayName,
	}
	if err := db.Create(created).Error; err != nil {
		return nil, apperrors.Wrap("create user", err)
	}
	return created, nil
}
