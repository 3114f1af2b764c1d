//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-transfer-api/internal/application/auth"
	"github.com/jhoicas/stock-transfer-api/internal/application/inventory"
	"github.com/jhoicas/stock-transfer-api/internal/domain"
	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
	"github.com/jhoicas/stock-transfer-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-transfer-api/pkg/config"
)

// Ejecutar con: TEST_DATABASE_URL=postgres://... go test -tags integration ./internal/infrastructure/postgres/

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL no definido")
	}
	require.NoError(t, postgres.Migrate(url, zerolog.Nop()))
	pool, err := postgres.NewPool(context.Background(), config.DBConfig{DatabaseURL: url})
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

type fixture struct {
	pool     *pgxpool.Pool
	userID   int64
	product  int64
	locA     int64
	locB     int64
	runner   *postgres.TxRunner
	transfer *inventory.TransferUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	pool := testPool(t)
	suffix := uuid.NewString()[:8]

	user := &entity.User{
		Email:        "it-" + suffix + "@example.com",
		PasswordHash: "x",
		Role:         entity.RoleManager,
		Status:       entity.UserStatusActive,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	require.NoError(t, postgres.NewUserRepository(pool).Create(ctx, user))

	product := &entity.Product{SKU: "IT-" + suffix, Name: "Producto " + suffix, UnitCost: decimal.NewFromInt(3)}
	require.NoError(t, postgres.NewProductRepository(pool).Create(ctx, product))

	locations := postgres.NewLocationRepository(pool)
	a := &entity.Location{Name: "A-" + suffix}
	b := &entity.Location{Name: "B-" + suffix}
	require.NoError(t, locations.Create(ctx, a))
	require.NoError(t, locations.Create(ctx, b))

	runner := postgres.NewTxRunner(pool, 5*time.Second)
	return &fixture{
		pool:     pool,
		userID:   user.ID,
		product:  product.ID,
		locA:     a.ID,
		locB:     b.ID,
		runner:   runner,
		transfer: inventory.NewTransferUseCase(runner, nil, 10*time.Second, zerolog.Nop()),
	}
}

func (f *fixture) receive(t *testing.T, location, qty int64) error {
	t.Helper()
	uc := inventory.NewReceiptUseCase(f.runner, nil, zerolog.Nop())
	return uc.Receive(context.Background(), inventory.ReceiptCommand{
		ProductID:  f.product,
		LocationID: location,
		Quantity:   qty,
		Actor:      entity.AccessClaims{UserID: f.userID, Role: entity.RoleManager},
	})
}

func (f *fixture) qty(t *testing.T, location int64) int64 {
	t.Helper()
	var q int64
	err := f.pool.QueryRow(context.Background(),
		`SELECT quantity FROM stock WHERE product_id = $1 AND location_id = $2`, f.product, location).Scan(&q)
	require.NoError(t, err)
	return q
}

func (f *fixture) command(from, to, qty int64, key string) inventory.TransferCommand {
	return inventory.TransferCommand{
		ProductID:      f.product,
		FromLocationID: from,
		ToLocationID:   to,
		Quantity:       qty,
		IdempotencyKey: key,
		Actor:          entity.AccessClaims{UserID: f.userID, Role: entity.RoleManager},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Traslados
// ──────────────────────────────────────────────────────────────────────────────

func TestIntegration_MismaClaveConcurrente_UnSoloTraslado(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.receive(t, f.locA, 100))
	key := "it-" + uuid.NewString()

	const n = 10
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		repeated int
		failures []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.transfer.Transfer(context.Background(), f.command(f.locA, f.locB, 5, key))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failures = append(failures, err)
			case res.Accepted:
				accepted++
			case res.AlreadyProcessed:
				repeated++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, failures)
	assert.Equal(t, 1, accepted)
	assert.Equal(t, n-1, repeated)
	assert.Equal(t, int64(95), f.qty(t, f.locA))
	assert.Equal(t, int64(5), f.qty(t, f.locB))
}

func TestIntegration_SentidosOpuestosConcurrentes_SinDeadlock(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.receive(t, f.locA, 100))
	require.NoError(t, f.receive(t, f.locB, 100))

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		from, to := f.locA, f.locB
		if i%2 == 1 {
			from, to = to, from
		}
		wg.Add(1)
		go func(key string) {
			defer wg.Done()
			_, err := f.transfer.Transfer(context.Background(), f.command(from, to, 1, key))
			errs <- err
		}(fmt.Sprintf("it-%s-%d", uuid.NewString(), i))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int64(100), f.qty(t, f.locA))
	assert.Equal(t, int64(100), f.qty(t, f.locB))
}

func TestIntegration_SedeDestinoInexistente_EsValidacion(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.receive(t, f.locA, 10))

	_, err := f.transfer.Transfer(context.Background(), f.command(f.locA, f.locB+1_000_000, 5, "it-"+uuid.NewString()))
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "to_location_id", ve.Field)
	assert.Equal(t, int64(10), f.qty(t, f.locA))
}

func TestIntegration_EntradaDesbordada_EsValidacion(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.receive(t, f.locA, math.MaxInt64-1))

	err := f.receive(t, f.locA, 5)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "qty", ve.Field)
	assert.Equal(t, int64(math.MaxInt64-1), f.qty(t, f.locA))
}

// ──────────────────────────────────────────────────────────────────────────────
// Refresh tokens
// ──────────────────────────────────────────────────────────────────────────────

func TestIntegration_RotacionConcurrente_UnSoloGanador(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := postgres.NewRefreshTokenRepository(f.pool)

	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)
	presented := auth.HashToken("presented-" + uuid.NewString())
	require.NoError(t, repo.Create(ctx, &entity.RefreshToken{
		TokenHash: presented, UserID: f.userID, ExpiresAt: exp, CreatedAt: time.Now().UTC(),
	}))

	const n = 10
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []*entity.RefreshToken
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := &entity.RefreshToken{
				TokenHash: auth.HashToken(fmt.Sprintf("next-%d-%s", i, uuid.NewString())),
				UserID:    f.userID,
				CreatedAt: time.Now().UTC(),
			}
			old, err := repo.Rotate(ctx, presented, next)
			assert.NoError(t, err)
			if old != nil {
				mu.Lock()
				winners = append(winners, next)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, winners, 1)
	assert.True(t, exp.Equal(winners[0].ExpiresAt), "hereda la expiración original")

	gone, err := repo.Find(ctx, presented)
	require.NoError(t, err)
	assert.Nil(t, gone)
	stored, err := repo.Find(ctx, winners[0].TokenHash)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, exp.Equal(stored.ExpiresAt))

	var rows int
	require.NoError(t, f.pool.QueryRow(ctx, `SELECT count(*) FROM refresh_tokens WHERE user_id = $1`, f.userID).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestIntegration_RotacionDeOtroUsuario_NoBorra(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := postgres.NewRefreshTokenRepository(f.pool)

	presented := auth.HashToken("presented-" + uuid.NewString())
	require.NoError(t, repo.Create(ctx, &entity.RefreshToken{
		TokenHash: presented, UserID: f.userID, ExpiresAt: time.Now().Add(time.Hour), CreatedAt: time.Now(),
	}))

	old, err := repo.Rotate(ctx, presented, &entity.RefreshToken{
		TokenHash: auth.HashToken("intruso-" + uuid.NewString()),
		UserID:    f.userID + 1_000_000,
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	assert.Nil(t, old)

	still, err := repo.Find(ctx, presented)
	require.NoError(t, err)
	assert.NotNil(t, still)
}

func TestIntegration_ErroresNoSonDePersistencia(t *testing.T) {
	f := newFixture(t)
	_, err := f.transfer.Transfer(context.Background(), f.command(f.locA, f.locB, 1, "it-"+uuid.NewString()))
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.False(t, errors.Is(err, domain.ErrPersistence))
}
