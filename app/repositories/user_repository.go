package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shashiranjanraj/cafe/app/models"
)

// UserRepository handles database operations for User and Profile.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy bound to tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// Create inserts the user and its profile in one transaction.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return err
		}
		profile := &models.Profile{UserID: user.ID, RoleTag: models.RoleTagFor(user.Role)}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	return user, err
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	return user, err
}

// EnsureProfile returns the user's profile, creating it on first touch.
func (r *UserRepository) EnsureProfile(ctx context.Context, user models.User) (models.Profile, error) {
	profile := models.Profile{UserID: user.ID}
	err := r.db.WithContext(ctx).
		Where(models.Profile{UserID: user.ID}).
		Attrs(models.Profile{RoleTag: models.RoleTagFor(user.Role)}).
		FirstOrCreate(&profile).Error
	return profile, err
}

// SetTOTPSecret stores a sealed secret. An empty value clears enrollment.
func (r *UserRepository) SetTOTPSecret(ctx context.Context, userID uint, sealed string) error {
	return r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ?", userID).
		Update("totp_secret", sealed).Error
}

// SetTOTPSecretIfEmpty stores sealed only when no secret exists yet and
// reports whether it did. Concurrent first enrollments settle on one secret.
func (r *UserRepository) SetTOTPSecretIfEmpty(ctx context.Context, userID uint, sealed string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("user_id = ? AND (totp_secret IS NULL OR totp_secret = '')", userID).
		Update("totp_secret", sealed)
	return res.RowsAffected == 1, res.Error
}
