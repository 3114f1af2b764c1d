package audit

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditEntry
	err     error
	block   chan struct{}
}

func (r *memAuditRepo) Insert(_ context.Context, e *entity.AuditEntry) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *memAuditRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func entry(action string) *entity.AuditEntry {
	return &entity.AuditEntry{Action: action, EntityType: entity.AuditEntityStock}
}

// ──────────────────────────────────────────────────────────────────────────────
// Tests
// ──────────────────────────────────────────────────────────────────────────────

func TestSink_PersisteYDrenaAlCerrar(t *testing.T) {
	repo := &memAuditRepo{}
	s := NewSink(repo, 16, time.Second, zerolog.Nop())
	s.Start()

	for i := 0; i < 10; i++ {
		s.Record(entry(entity.AuditActionStockTransfer))
	}
	require.NoError(t, s.Close(context.Background()))

	assert.Equal(t, 10, repo.count())
	for _, e := range repo.entries {
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.CreatedAt.IsZero())
	}
}

func TestSink_BufferLlenoDescartaSinBloquear(t *testing.T) {
	out := &syncBuffer{}
	repo := &memAuditRepo{}
	s := NewSink(repo, 1, time.Second, zerolog.New(out))

	done := make(chan struct{})
	go func() {
		s.Record(entry("A"))
		s.Record(entry("B"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record bloqueó con el buffer lleno")
	}
	assert.Contains(t, out.String(), "buffer lleno")

	s.Start()
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, repo.count())
}

func TestSink_FalloDePersistenciaSoloSeLoguea(t *testing.T) {
	out := &syncBuffer{}
	repo := &memAuditRepo{err: errors.New("db caída")}
	s := NewSink(repo, 4, time.Second, zerolog.New(out))
	s.Start()

	assert.NotPanics(t, func() { s.Record(entry(entity.AuditActionLogin)) })
	require.NoError(t, s.Close(context.Background()))
	assert.Contains(t, out.String(), "no se pudo persistir la auditoría")
	assert.Equal(t, 0, repo.count())
}

func TestSink_RecordDespuesDeCerrar(t *testing.T) {
	s := NewSink(&memAuditRepo{}, 4, time.Second, zerolog.Nop())
	s.Start()
	require.NoError(t, s.Close(context.Background()))

	assert.NotPanics(t, func() { s.Record(entry(entity.AuditActionLogout)) })
	assert.NoError(t, s.Close(context.Background()), "Close es idempotente")
}

func TestSink_CloseRespetaContexto(t *testing.T) {
	repo := &memAuditRepo{block: make(chan struct{})}
	defer close(repo.block)
	s := NewSink(repo, 4, time.Second, zerolog.Nop())
	s.Start()
	s.Record(entry("A"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Close(ctx), context.DeadlineExceeded)
}
