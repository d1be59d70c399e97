package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-scoreform/pkg/form"
	"github.com/goliatone/go-scoreform/pkg/renderers/html"
	"github.com/goliatone/go-scoreform/pkg/session"
	"github.com/goliatone/go-scoreform/pkg/store"
	"github.com/goliatone/go-scoreform/pkg/submit"
)

const sessionCookie = "scoreform_session"

// noticeRecorder buffers announcer and notifier messages emitted during a
// request so the next page render can show them.
type noticeRecorder struct {
	mu           sync.Mutex
	info         string
	err          string
	announcement string
}

func (n *noticeRecorder) Announce(message string) {
	n.mu.Lock()
	n.announcement = message
	n.mu.Unlock()
}

func (n *noticeRecorder) Info(message string) {
	n.mu.Lock()
	n.info = message
	n.mu.Unlock()
}

func (n *noticeRecorder) Error(message string) {
	n.mu.Lock()
	n.err = message
	n.mu.Unlock()
}

// Take drains the buffered messages.
func (n *noticeRecorder) Take() html.Notices {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := html.Notices{Info: n.info, Error: n.err, Announcement: n.announcement}
	n.info, n.err, n.announcement = "", "", ""
	return out
}

// sessionEntry bundles everything scoped to one visitor: the session, its
// snapshot adapter, the debounced saver, the per-session coordinator, and
// the notice buffer.
type sessionEntry struct {
	sess        *session.Session
	adapter     *store.Adapter
	saver       *store.DebouncedSaver
	coordinator *submit.Coordinator
	notices     *noticeRecorder
}

// sessionManager tracks active sessions keyed by cookie.
type sessionManager struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry

	def        *form.Definition
	kv         store.KV
	quiet      time.Duration
	classifier submit.Classifier
	logger     *slog.Logger
}

func newSessionManager(def *form.Definition, kv store.KV, quiet time.Duration, classifier submit.Classifier, logger *slog.Logger) *sessionManager {
	return &sessionManager{
		entries:    make(map[string]*sessionEntry),
		def:        def,
		kv:         kv,
		quiet:      quiet,
		classifier: classifier,
		logger:     logger,
	}
}

// lookup returns the entry for the request's cookie, creating a fresh
// session (restored from its snapshot when one exists) on first contact.
func (m *sessionManager) lookup(w http.ResponseWriter, r *http.Request) *sessionEntry {
	id := ""
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		id = cookie.Value
	}
	if id == "" {
		id = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[id]; ok {
		return entry
	}

	entry := m.create(id)
	m.entries[id] = entry
	return entry
}

func (m *sessionManager) create(id string) *sessionEntry {
	adapter := store.New(m.kv,
		store.WithKeySuffix(id),
		store.WithLogger(m.logger),
	)
	saver := store.NewDebouncedSaver(adapter, m.quiet)
	notices := &noticeRecorder{}

	sess := session.New(m.def,
		session.WithID(id),
		session.WithAnnouncer(notices),
		session.WithNotifier(notices),
		session.WithChangeListener(func(s *session.Session) {
			saver.Notify(s)
		}),
	)
	if snapshot, ok := adapter.Load(); ok {
		sess.Restore(snapshot)
	}

	return &sessionEntry{
		sess:    sess,
		adapter: adapter,
		saver:   saver,
		coordinator: submit.New(m.classifier,
			submit.WithSnapshots(adapter),
			submit.WithLogger(m.logger),
		),
		notices: notices,
	}
}

// drop forgets a session, stopping its saver. The next request with the same
// cookie starts from a clean slate.
func (m *sessionManager) drop(id string) {
	m.mu.Lock()
	entry, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()
	if ok {
		entry.saver.Stop()
	}
}

// stopAll flushes and stops every saver, for shutdown.
func (m *sessionManager) stopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, entry := range m.entries {
		entry.saver.Flush()
		entry.saver.Stop()
	}
}
