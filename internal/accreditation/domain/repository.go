package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, a *Accreditation) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Accreditation, error)
	List(ctx context.Context, db *gorm.DB) ([]Accreditation, error)
}
