package profiles

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// profileRecord is the relational row for a Profile.
type profileRecord struct {
	UID           string `gorm:"primaryKey;column:uid"`
	Email         string `gorm:"index"`
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
	Active        bool
	LastLoginAt   *time.Time
	LastLogoutAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (profileRecord) TableName() string { return "profiles" }

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// GormRepository implements Repository on a SQL database through gorm.
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository migrates the profiles table and returns the repository.
func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	if err := db.AutoMigrate(&profileRecord{}); err != nil {
		return nil, err
	}
	return &GormRepository{db: db}, nil
}

func (r *GormRepository) Get(ctx context.Context, uid string) (*Profile, error) {
	var rec profileRecord
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &Profile{
		UID:           rec.UID,
		Email:         rec.Email,
		DisplayName:   rec.DisplayName,
		PhotoURL:      rec.PhotoURL,
		EmailVerified: rec.EmailVerified,
		Active:        rec.Active,
		LastLoginAt:   derefTime(rec.LastLoginAt),
		LastLogoutAt:  derefTime(rec.LastLogoutAt),
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}, nil
}

func (r *GormRepository) Create(ctx context.Context, p *Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	rec := profileRecord{
		UID:           p.UID,
		Email:         p.Email,
		DisplayName:   p.DisplayName,
		PhotoURL:      p.PhotoURL,
		EmailVerified: p.EmailVerified,
		Active:        p.Active,
		LastLoginAt:   optTime(p.LastLoginAt),
		LastLogoutAt:  optTime(p.LastLogoutAt),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}

func (r *GormRepository) Update(ctx context.Context, uid string, f Fields) error {
	values := map[string]interface{}{"updated_at": time.Now().UTC()}
	for _, fv := range f.list() {
		values[fv.column] = fv.value
	}
	res := r.db.WithContext(ctx).Model(&profileRecord{}).Where("uid = ?", uid).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
