package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Accreditation is a persisted receipt credited to a user at a sale point.
// Every field except UpdatedAt and DeletedAt is immutable once saved.
type Accreditation struct {
	ID            snowflake.ID   `gorm:"primaryKey;autoIncrement:false"`
	SalePointID   int64          `gorm:"column:sale_point_id;not null"`
	SalePointName string         `gorm:"column:sale_point_name;type:text;not null"`
	UserID        int64          `gorm:"column:user_id;not null;index:idx_accreditations_user_id"`
	Amount        Money          `gorm:"column:amount;not null"`
	ReceiptDate   time.Time      `gorm:"column:receipt_date;not null"`
	CreatedAt     time.Time      `gorm:"not null;autoCreateTime:false"`
	UpdatedAt     time.Time      `gorm:"not null"`
	DeletedAt     gorm.DeletedAt `gorm:"index:idx_accreditations_deleted_at"`
}

// TableName sets the database table name.
func (Accreditation) TableName() string { return "accreditations" }
