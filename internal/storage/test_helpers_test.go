package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/music-premium/internal/migrations"
	"github.com/magabrotheeeer/music-premium/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и накатывает миграции.
func setupTestDatabase(t *testing.T) *Storage {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	var storage *Storage
	for range 10 {
		storage, err = New(connStr)
		if err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	require.NoError(t, err, "failed to create storage after retries")
	t.Cleanup(func() {
		_ = storage.Close()
	})

	root, err := filepath.Abs("../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations")))
	require.NoError(t, CheckDatabaseReady(storage))

	return storage
}

// TestDataFactory создаёт тестовые записи.
type TestDataFactory struct {
	storage *Storage
}

// NewTestDataFactory создаёт фабрику тестовых данных.
func NewTestDataFactory(storage *Storage) *TestDataFactory {
	return &TestDataFactory{storage: storage}
}

// CreatePendingPayment вставляет pending-намерение, отменяя прежние pending пользователя.
func (f *TestDataFactory) CreatePendingPayment(t *testing.T, userID string, plan models.PlanID, code string, expiresAt time.Time) *models.Payment {
	p, ok := models.FindPlan(plan)
	require.True(t, ok)
	created, _, err := f.storage.ReplacePendingPayment(context.Background(), models.Payment{
		UserID:          userID,
		PlanID:          plan,
		Amount:          p.Price,
		TransactionCode: code,
		Status:          models.PaymentPending,
		ExpiresAt:       expiresAt,
	})
	require.NoError(t, err)
	return created
}

// paymentStatus читает статус намерения напрямую из таблицы.
func paymentStatus(t *testing.T, s *Storage, id string) models.PaymentStatus {
	var status models.PaymentStatus
	err := s.DB.QueryRow(`SELECT status FROM payments WHERE id::text = $1`, id).Scan(&status)
	require.NoError(t, err)
	return status
}
