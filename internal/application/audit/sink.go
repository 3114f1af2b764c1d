package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-transfer-api/internal/domain/entity"
	"github.com/jhoicas/stock-transfer-api/internal/domain/repository"
)

const (
	defaultBuffer       = 256
	defaultWriteTimeout = 3 * time.Second
)

// Sink recibe entradas de auditoría sin bloquear al caller y las persiste en un worker propio.
// Buffer lleno o fallo de persistencia se registran en el log; nunca llegan al caller.
type Sink struct {
	repo         repository.AuditRepository
	queue        chan *entity.AuditEntry
	writeTimeout time.Duration
	log          zerolog.Logger

	mu      sync.RWMutex
	started bool
	closed  bool
	done    chan struct{}
}

// NewSink construye el sink; Start arranca el worker.
func NewSink(repo repository.AuditRepository, buffer int, writeTimeout time.Duration, log zerolog.Logger) *Sink {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Sink{
		repo:         repo,
		queue:        make(chan *entity.AuditEntry, buffer),
		writeTimeout: writeTimeout,
		log:          log,
		done:         make(chan struct{}),
	}
}

// Start arranca el worker. Llamadas repetidas no tienen efecto.
func (s *Sink) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true
	go s.run()
}

// Record encola la entrada y retorna de inmediato.
func (s *Sink) Record(entry *entity.AuditEntry) {
	if entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.log.Warn().Str("action", entry.Action).Msg("auditoría descartada: sink cerrado")
		return
	}
	select {
	case s.queue <- entry:
	default:
		s.log.Warn().Str("action", entry.Action).Str("audit_id", entry.ID).Msg("auditoría descartada: buffer lleno")
	}
}

// Close deja de aceptar entradas y espera a que el worker vacíe la cola o a que ctx expire.
func (s *Sink) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	started := s.started
	s.mu.Unlock()

	if !started {
		if n := len(s.queue); n > 0 {
			s.log.Warn().Int("pending", n).Msg("sink cerrado sin worker; auditorías pendientes descartadas")
		}
		return nil
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		s.log.Warn().Int("pending", len(s.queue)).Msg("cierre del sink de auditoría interrumpido")
		return ctx.Err()
	}
}

func (s *Sink) run() {
	defer close(s.done)
	for entry := range s.queue {
		s.persist(entry)
	}
}

func (s *Sink) persist(entry *entity.AuditEntry) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("action", entry.Action).Msg("panic persistiendo auditoría")
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	if err := s.repo.Insert(ctx, entry); err != nil {
		s.log.Error().Err(err).
			Str("action", entry.Action).
			Str("audit_id", entry.ID).
			Msg("no se pudo persistir la auditoría")
	}
}
