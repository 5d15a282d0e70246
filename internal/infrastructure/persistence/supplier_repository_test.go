package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockGormDB opens GORM on a mocked postgres connection
func newMockGormDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestGormSupplierRepository_FindAllByAccount(t *testing.T) {
	t.Run("lists suppliers scoped to account", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormSupplierRepository(db)

		accountID := uuid.New()
		supplierID := uuid.New()
		now := time.Now()

		rows := sqlmock.NewRows([]string{"id", "account_id", "name", "lead_time_days", "created_at", "updated_at"}).
			AddRow(supplierID, accountID, "Wax & Co", 9, now, now)
		mock.ExpectQuery(`SELECT \* FROM "suppliers" WHERE account_id = \$1 ORDER BY name ASC`).
			WithArgs(accountID).
			WillReturnRows(rows)

		suppliers, err := repo.FindAllByAccount(context.Background(), accountID)
		require.NoError(t, err)
		require.Len(t, suppliers, 1)
		assert.Equal(t, supplierID, suppliers[0].ID)
		assert.Equal(t, "Wax & Co", suppliers[0].Name)
		assert.Equal(t, 9, suppliers[0].LeadTimeDays)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("passes through database errors", func(t *testing.T) {
		db, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormSupplierRepository(db)

		dbErr := errors.New("connection refused")
		mock.ExpectQuery(`SELECT \* FROM "suppliers"`).WillReturnError(dbErr)

		_, err := repo.FindAllByAccount(context.Background(), uuid.New())
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestGormProductRepository_FindAllByAccount_Postgres(t *testing.T) {
	db, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormProductRepository(db)

	accountID := uuid.New()
	productID := uuid.New()
	rows := sqlmock.NewRows([]string{"id", "variation_id", "account_id", "external_id", "name", "sku", "manages_stock", "stock_quantity", "supplier_id"}).
		AddRow(productID, 0, accountID, 77, "Candle", "C-1", true, nil, nil)
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE account_id = \$1 ORDER BY name ASC, id ASC, variation_id ASC`).
		WithArgs(accountID).
		WillReturnRows(rows)

	products, err := repo.FindAllByAccount(context.Background(), accountID)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(77), products[0].ExternalID)
	assert.True(t, products[0].ManagesStock)
	assert.Nil(t, products[0].ExternalStock)
	assert.Nil(t, products[0].SupplierID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
