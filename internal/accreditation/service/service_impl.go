package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	accreditationdomain "github.com/smallbiznis/accreditation/internal/accreditation/domain"
	"github.com/smallbiznis/accreditation/internal/apperr"
	"github.com/smallbiznis/accreditation/internal/clock"
	notificationdomain "github.com/smallbiznis/accreditation/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/accreditation/internal/observability/metrics"
	"github.com/smallbiznis/accreditation/pkg/log/ctxlogger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	receiptSubject    = "Accreditation confirmation - Receipt No. %d"
	receiptBodyHeader = "Dear user,\n\nYour accreditation has been processed successfully. The corresponding receipt is attached.\n\nRegards."
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       accreditationdomain.Repository
	SalePoints accreditationdomain.SalePointResolver
	Users      accreditationdomain.UserResolver
	Publisher  notificationdomain.Publisher
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       accreditationdomain.Repository
	salePoints accreditationdomain.SalePointResolver
	users      accreditationdomain.UserResolver
	publisher  notificationdomain.Publisher
	metrics    *obsmetrics.Metrics
}

func New(p Params) accreditationdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("accreditation.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		salePoints: p.SalePoints,
		users:      p.Users,
		publisher:  p.Publisher,
		metrics:    p.Metrics,
	}
}

// Create resolves the sale point name and the caller's user id, persists the
// record and publishes the receipt notification. Nothing is written unless
// both lookups succeed; lookup errors are returned unchanged.
func (s *Service) Create(ctx context.Context, caller accreditationdomain.Identity, req accreditationdomain.CreateRequest) (*accreditationdomain.Response, error) {
	if err := validateCreate(caller, req); err != nil {
		return nil, err
	}
	log := ctxlogger.WithContext(ctx, s.log).With(zap.Int64("sale_point_id", req.SalePointID))

	salePointName, err := s.salePoints.ResolveName(ctx, req.SalePointID)
	if err != nil {
		log.Warn("sale point lookup failed", zap.Error(err))
		return nil, err
	}

	userID, err := s.users.ResolveUserID(ctx, caller.Email)
	if err != nil {
		log.Warn("user lookup failed", zap.Error(err))
		return nil, err
	}

	now := s.clock.Now()
	record := &accreditationdomain.Accreditation{
		ID:            s.genID.Generate(),
		SalePointID:   req.SalePointID,
		SalePointName: salePointName,
		UserID:        userID,
		Amount:        req.Amount,
		ReceiptDate:   req.ReceiptDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, record); err != nil {
		log.Error("failed to save accreditation", zap.Error(err))
		return nil, apperr.New(apperr.KindInternal, "failed to save accreditation", err)
	}
	s.metrics.RecordAccreditationCreated(ctx)
	log.Info("accreditation created",
		zap.Int64("accreditation_id", record.ID.Int64()),
		zap.Int64("user_id", userID),
	)

	// The record is committed; the publish result is informational only.
	result := s.publisher.Publish(ctx, receiptEvent(record, caller.Email), record.ID.Int64())
	if !result.Delivered {
		log.Warn("accreditation saved without receipt notification",
			zap.Int64("accreditation_id", record.ID.Int64()),
			zap.Int("attempts", result.Attempts),
		)
	}

	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) List(ctx context.Context) ([]accreditationdomain.Response, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, "failed to list accreditations", err)
	}

	resp := make([]accreditationdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*accreditationdomain.Response, error) {
	record, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(record)
	return &resp, nil
}

// GetByIDForOwner only returns records whose user id equals callerID.
func (s *Service) GetByIDForOwner(ctx context.Context, callerID int64, id snowflake.ID) (*accreditationdomain.Response, error) {
	record, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.UserID != callerID {
		ctxlogger.WithContext(ctx, s.log).Warn("accreditation owner mismatch",
			zap.Int64("accreditation_id", id.Int64()),
			zap.Int64("caller_id", callerID),
		)
		return nil, apperr.New(apperr.KindPermissionDenied, "you do not have permission to view this accreditation", nil)
	}
	resp := toResponse(record)
	return &resp, nil
}

func (s *Service) find(ctx context.Context, id snowflake.ID) (*accreditationdomain.Accreditation, error) {
	record, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, apperr.New(apperr.KindInternal, "failed to load accreditation", err)
	}
	if record == nil {
		return nil, apperr.New(apperr.KindNotFound, fmt.Sprintf("accreditation %d not found", id.Int64()), nil)
	}
	return record, nil
}

func validateCreate(caller accreditationdomain.Identity, req accreditationdomain.CreateRequest) error {
	switch {
	case strings.TrimSpace(caller.Email) == "":
		return apperr.New(apperr.KindInvalidRequest, "caller email is required", accreditationdomain.ErrMissingEmail)
	case req.SalePointID <= 0:
		return apperr.New(apperr.KindInvalidRequest, "salePointId must be positive", accreditationdomain.ErrInvalidSalePoint)
	case req.Amount <= 0:
		return apperr.New(apperr.KindInvalidRequest, "amount must be positive", accreditationdomain.ErrInvalidAmount)
	case req.ReceiptDate.IsZero():
		return apperr.New(apperr.KindInvalidRequest, "receiptDate is required", accreditationdomain.ErrInvalidReceiptDate)
	}
	return nil
}

func receiptEvent(record *accreditationdomain.Accreditation, email string) notificationdomain.Event {
	return notificationdomain.Event{
		To:         email,
		Subject:    fmt.Sprintf(receiptSubject, record.ID.Int64()),
		BodyHeader: receiptBodyHeader,
		Data: notificationdomain.EventData{
			AccreditationID: record.ID.Int64(),
			SalePointName:   record.SalePointName,
			UserID:          record.UserID,
			UserEmail:       email,
			Amount:          json.Number(record.Amount.String()),
			ReceiptDate:     record.ReceiptDate,
			CreatedAt:       record.CreatedAt,
		},
	}
}

func toResponse(a *accreditationdomain.Accreditation) accreditationdomain.Response {
	return accreditationdomain.Response{
		ID:            a.ID,
		SalePointID:   a.SalePointID,
		UserID:        a.UserID,
		SalePointName: a.SalePointName,
		Amount:        a.Amount,
		ReceiptDate:   a.ReceiptDate,
		CreatedAt:     a.CreatedAt,
	}
}
