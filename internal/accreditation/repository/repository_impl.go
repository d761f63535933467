package repository

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	accreditationdomain "github.com/smallbiznis/accreditation/internal/accreditation/domain"
	pkgdb "github.com/smallbiznis/accreditation/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() accreditationdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, a *accreditationdomain.Accreditation) error {
	err := db.WithContext(ctx).Create(a).Error
	if pkgdb.IsDuplicateKeyErr(err) {
		return fmt.Errorf("%w: %v", accreditationdomain.ErrDuplicateID, err)
	}
	return err
}

// FindByID returns nil without error when no live record has the id.
func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*accreditationdomain.Accreditation, error) {
	var a accreditationdomain.Accreditation
	err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if pkgdb.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]accreditationdomain.Accreditation, error) {
	var items []accreditationdomain.Accreditation
	err := db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
