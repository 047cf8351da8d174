package catalog

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brandlover88/brandlover-backend/internal/models"
)

// ErrBusy is returned when a flow is started while another one is still
// in-flight for the same session.
var ErrBusy = errors.New("catalog: another operation is in flight for this session")

// NoticeTTL is how long a notice stays visible before it auto-dismisses.
const NoticeTTL = 3 * time.Second

type Notice struct {
	Message string    `json:"message"`
	Type    string    `json:"type"` // "success" | "error"
	At      time.Time `json:"-"`
}

type UploadState struct {
	Uploading        bool `json:"uploading"`
	Progress         int  `json:"progress"`
	CurrentFileIndex int  `json:"current_file_index"`
	TotalFiles       int  `json:"total_files"`
}

// Session is one admin user's editing state: the draft product, the set of
// images uploaded in this session but not yet committed (url -> storage key),
// the edit target and the upload progress counters. It is the server-side
// equivalent of the admin page's component state.
type Session struct {
	mu   sync.Mutex
	busy bool

	Lang string

	draft     models.Product
	editingID uuid.UUID
	temp      map[string]string // public URL -> storage key

	notice *Notice
	upload UploadState
}

func newSession(lang string) *Session {
	s := &Session{Lang: lang, temp: make(map[string]string)}
	s.draft = emptyDraft()
	return s
}

func emptyDraft() models.Product {
	return models.Product{
		TelegramLink: models.DefaultTelegramLink,
		CreatedAt:    time.Now(),
	}
}

// begin takes the in-flight guard. Flows must pair it with end via defer.
func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

func (s *Session) notify(kind, message string) {
	s.mu.Lock()
	s.notice = &Notice{Message: message, Type: kind, At: time.Now()}
	s.mu.Unlock()
}

// Notice returns the current notice, or nil once it has expired. A new
// notice replaces the previous one regardless of age.
func (s *Session) Notice() *Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notice == nil || time.Since(s.notice.At) > NoticeTTL {
		return nil
	}
	n := *s.notice
	return &n
}

func (s *Session) setUpload(fn func(u *UploadState)) {
	s.mu.Lock()
	fn(&s.upload)
	s.mu.Unlock()
}

func (s *Session) Upload() UploadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upload
}

func (s *Session) Draft() models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.draft
	d.Images = append(d.Images[:0:0], s.draft.Images...)
	return d
}

func (s *Session) EditingID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editingID
}

// TemporaryImages returns the uncommitted upload set as url -> key.
func (s *Session) TemporaryImages() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.temp))
	for u, k := range s.temp {
		out[u] = k
	}
	return out
}

// SetDraftFields applies user edits to the non-image draft fields.
func (s *Session) SetDraftFields(brand, model, title, price, description, telegramLink string, featured bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Brand = brand
	s.draft.Model = model
	s.draft.Title = title
	s.draft.Price = price
	s.draft.Description = description
	if telegramLink != "" {
		s.draft.TelegramLink = telegramLink
	}
	s.draft.Featured = featured
}

// Manager hands out one session per admin user.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

func (m *Manager) Get(userID, lang string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		s = newSession(lang)
		m.sessions[userID] = s
	}
	if lang != "" {
		s.Lang = lang
	}
	return s
}
