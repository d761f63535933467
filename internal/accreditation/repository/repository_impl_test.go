package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accreditationdomain "github.com/smallbiznis/accreditation/internal/accreditation/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&accreditationdomain.Accreditation{}))
	return db
}

func TestRepositoryInsertAndFind(t *testing.T) {
	db := setupDB(t)
	r := Provide()
	ctx := context.Background()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := &accreditationdomain.Accreditation{
		ID:            node.Generate(),
		SalePointID:   100,
		SalePointName: "Plaza Central",
		UserID:        42,
		Amount:        15075,
		ReceiptDate:   t0,
		CreatedAt:     t0.Add(time.Hour),
	}
	require.NoError(t, r.Insert(ctx, db, rec))

	got, err := r.FindByID(ctx, db, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, int64(100), got.SalePointID)
	assert.Equal(t, "Plaza Central", got.SalePointName)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, accreditationdomain.Money(15075), got.Amount)
	assert.True(t, t0.Equal(got.ReceiptDate))
	assert.True(t, t0.Add(time.Hour).Equal(got.CreatedAt))
}

func TestRepositoryFindByIDMissing(t *testing.T) {
	db := setupDB(t)

	got, err := Provide().FindByID(context.Background(), db, snowflake.ID(999))

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRepositoryListNewestFirst(t *testing.T) {
	db := setupDB(t)
	r := Provide()
	ctx := context.Background()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Insert(ctx, db, &accreditationdomain.Accreditation{
			ID:            node.Generate(),
			SalePointID:   int64(100 + i),
			SalePointName: fmt.Sprintf("Point %d", i),
			UserID:        42,
			Amount:        100,
			ReceiptDate:   base,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}))
	}

	items, err := r.List(ctx, db)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, int64(102), items[0].SalePointID)
	assert.Equal(t, int64(100), items[2].SalePointID)
}

func TestRepositoryInsertDuplicateID(t *testing.T) {
	db := setupDB(t)
	r := Provide()
	ctx := context.Background()

	rec := accreditationdomain.Accreditation{
		ID:            snowflake.ID(77),
		SalePointID:   100,
		SalePointName: "Plaza Central",
		UserID:        42,
		Amount:        100,
		ReceiptDate:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	first := rec
	require.NoError(t, r.Insert(ctx, db, &first))

	second := rec
	err := r.Insert(ctx, db, &second)

	assert.ErrorIs(t, err, accreditationdomain.ErrDuplicateID)
}
