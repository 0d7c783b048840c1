// Package session guarda o estado de trabalho de cada roteirista: modelo
// escolhido, modo de trabalho e os últimos rascunhos gerados.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

const (
	DefaultTTL = 2 * time.Hour
	draftLimit = 10
	keyPrefix  = "roteirista:sessao:"
)

// ErrNotFound indica sessão inexistente ou expirada.
var ErrNotFound = eris.New("session: não encontrada")

// Draft é um roteiro gerado e, depois da revisão, a versão aprovada.
type Draft struct {
	ProductCode string    `json:"codigo_produto"`
	ProductName string    `json:"nome_produto"`
	Original    string    `json:"roteiro_original"`
	Approved    string    `json:"roteiro_aprovado,omitempty"`
	ModelID     string    `json:"model_id"`
	CreatedAt   time.Time `json:"criado_em"`
}

type Session struct {
	ID        string    `json:"id"`
	ModelID   string    `json:"model_id"`
	WorkMode  string    `json:"modo_trabalho"`
	Month     string    `json:"mes"`
	Drafts    []Draft   `json:"rascunhos"`
	UpdatedAt time.Time `json:"atualizado_em"`
}

func New(modelID, workMode, month string) *Session {
	return &Session{
		ID:        uuid.NewString(),
		ModelID:   modelID,
		WorkMode:  workMode,
		Month:     month,
		UpdatedAt: time.Now(),
	}
}

// AddDraft guarda o rascunho mantendo só os mais recentes.
func (s *Session) AddDraft(d Draft) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	s.Drafts = append(s.Drafts, d)
	if len(s.Drafts) > draftLimit {
		s.Drafts = s.Drafts[len(s.Drafts)-draftLimit:]
	}
	s.UpdatedAt = time.Now()
}

// Approve grava a versão aprovada no rascunho do produto mais recente.
func (s *Session) Approve(productCode, approved string) bool {
	for i := len(s.Drafts) - 1; i >= 0; i-- {
		if s.Drafts[i].ProductCode == productCode {
			s.Drafts[i].Approved = approved
			s.UpdatedAt = time.Now()
			return true
		}
	}
	return false
}

func (s *Session) LastDraft() (Draft, bool) {
	if len(s.Drafts) == 0 {
		return Draft{}, false
	}
	return s.Drafts[len(s.Drafts)-1], true
}

type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// RedisStore serializa a sessão em JSON com expiração.
type RedisStore struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{Client: client, TTL: ttl}
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	val, err := r.Client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "session: get")
	}

	var s Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, eris.Wrap(err, "session: decode")
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.UpdatedAt = time.Now()
	b, err := json.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "session: encode")
	}
	return eris.Wrap(r.Client.Set(ctx, keyPrefix+s.ID, b, r.TTL).Err(), "session: set")
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return eris.Wrap(r.Client.Del(ctx, keyPrefix+id).Err(), "session: delete")
}

// MemoryStore é usado quando não há Redis configurado. Não expira.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string][]byte{}}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	b, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, eris.Wrap(err, "session: decode")
	}
	return &s, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.UpdatedAt = time.Now()
	b, err := json.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "session: encode")
	}
	m.mu.Lock()
	m.sessions[s.ID] = b
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
