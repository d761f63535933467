package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, caller Identity, req CreateRequest) (*Response, error)
	List(ctx context.Context) ([]Response, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Response, error)
	GetByIDForOwner(ctx context.Context, callerID int64, id snowflake.ID) (*Response, error)
}

// Identity is the verified caller handed over by the HTTP layer.
type Identity struct {
	ID    int64
	Email string
	Role  string
}

const RoleAdmin = "admin"

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

type CreateRequest struct {
	SalePointID int64     `json:"salePointId"`
	Amount      Money     `json:"amount"`
	ReceiptDate time.Time `json:"receiptDate"`
}

type Response struct {
	ID            snowflake.ID `json:"id"`
	SalePointID   int64        `json:"salePointId"`
	UserID        int64        `json:"userId"`
	SalePointName string       `json:"salePointName"`
	Amount        Money        `json:"amount"`
	ReceiptDate   time.Time    `json:"receiptDate"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// SalePointResolver turns a sale point id into its display name.
type SalePointResolver interface {
	ResolveName(ctx context.Context, salePointID int64) (string, error)
}

// UserResolver turns a caller email into the internal user id.
type UserResolver interface {
	ResolveUserID(ctx context.Context, email string) (int64, error)
}

var (
	ErrInvalidSalePoint   = errors.New("invalid_sale_point_id")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidReceiptDate = errors.New("invalid_receipt_date")
	ErrMissingEmail       = errors.New("missing_caller_email")
	ErrDuplicateID        = errors.New("duplicate_accreditation_id")
)
