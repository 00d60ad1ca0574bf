package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opencensus.io/trace"

	"github.com/Notifuse/designer/internal/domain"
	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/document"
	"github.com/Notifuse/designer/pkg/editor"
	"github.com/Notifuse/designer/pkg/htmlgen"
	"github.com/Notifuse/designer/pkg/logger"
	"github.com/Notifuse/designer/pkg/tracing"
)

const (
	// untitledTemplateName names the template created by the first save of a blank session
	untitledTemplateName = "Untitled email"

	subscriberBuffer = 16
)

type EditorServiceConfig struct {
	HistoryLimit     int
	AutoSaveInterval time.Duration
	SessionIdleTTL   time.Duration
}

// editorSession is one open editor. mu guards every field; saveMu serializes
// saves so that a slow store call never blocks operations on the document.
type editorSession struct {
	id string

	mu            sync.Mutex
	saveMu        sync.Mutex
	editor        *editor.Editor
	template      *domain.Template
	lastSavedAt   *time.Time
	lastSaveError string
	lastActive    time.Time
	closed        bool
	subscribers   map[int]chan domain.SessionState
	nextSubID     int
}

// stateLocked must be called with mu held
func (sess *editorSession) stateLocked() domain.SessionState {
	state := domain.SessionState{
		SessionID:     sess.id,
		LastSaveError: sess.lastSaveError,
		Closed:        sess.closed,
		State:         sess.editor.State(),
	}
	if sess.template != nil {
		state.TemplateID = sess.template.ID
		state.TemplateVersion = sess.template.Version
	}
	if sess.lastSavedAt != nil {
		t := *sess.lastSavedAt
		state.LastSavedAt = &t
	}
	return state
}

// publishLocked must be called with mu held. Slow subscribers miss updates
// rather than blocking the session.
func (sess *editorSession) publishLocked(state domain.SessionState) {
	for _, ch := range sess.subscribers {
		select {
		case ch <- state:
		default:
		}
	}
}

// EditorService keeps editing sessions in memory. Dirty sessions are saved on a
// cron schedule and idle sessions are saved and evicted.
type EditorService struct {
	templates domain.TemplateService
	logger    logger.Logger
	config    EditorServiceConfig
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*editorSession

	cron *cron.Cron
}

func NewEditorService(templates domain.TemplateService, logger logger.Logger, config EditorServiceConfig) *EditorService {
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = 50
	}
	return &EditorService{
		templates: templates,
		logger:    logger,
		config:    config,
		now:       time.Now,
		sessions:  make(map[string]*editorSession),
	}
}

// Start schedules auto-save and idle eviction. Zero intervals disable the job.
func (s *EditorService) Start() error {
	c := cron.New()
	if s.config.AutoSaveInterval > 0 {
		if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.config.AutoSaveInterval), func() {
			s.AutoSave(context.Background())
		}); err != nil {
			return fmt.Errorf("failed to schedule auto-save: %w", err)
		}
	}
	if s.config.SessionIdleTTL > 0 {
		if _, err := c.AddFunc(fmt.Sprintf("@every %s", evictionInterval(s.config.SessionIdleTTL)), func() {
			s.EvictIdle(context.Background())
		}); err != nil {
			return fmt.Errorf("failed to schedule session eviction: %w", err)
		}
	}
	c.Start()
	s.cron = c

	s.logger.WithFields(map[string]interface{}{
		"auto_save_interval": s.config.AutoSaveInterval.String(),
		"session_idle_ttl":   s.config.SessionIdleTTL.String(),
	}).Info("Editor session scheduler started")
	return nil
}

func evictionInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

// Stop waits for running jobs, saves every dirty session and then closes all
// sessions so their subscribers are released
func (s *EditorService) Stop(ctx context.Context) {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.cron = nil
	}
	s.AutoSave(ctx)
	for _, sess := range s.snapshotSessions() {
		sess.mu.Lock()
		dirty := sess.editor.Dirty()
		sess.mu.Unlock()
		if dirty {
			s.logger.WithField("session_id", sess.id).Warn("Closing editor session with unsaved changes")
		}
		s.detach(sess)
	}
}

func (s *EditorService) getSession(sessionID string) (*editorSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, &domain.ErrSessionNotFound{SessionID: sessionID}
	}
	return sess, nil
}

// OpenSession loads a stored template version into a new editor, or starts from
// an empty document when no template is given
func (s *EditorService) OpenSession(ctx context.Context, req domain.OpenSessionRequest) (*domain.SessionState, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "EditorService", "OpenSession")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("template_id", req.TemplateID))

	if err := req.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	var tpl *domain.Template
	if req.TemplateID != "" {
		var err error
		tpl, err = s.templates.GetTemplateByID(ctx, req.TemplateID, req.Version)
		if err != nil {
			tracing.MarkSpanError(ctx, err)
			return nil, err
		}
	}

	mode := req.PreviewMode
	if mode == "" && tpl != nil {
		mode = tpl.Responsive.DefaultPreviewMode
	}
	ed := editor.New(editor.WithHistoryLimit(s.config.HistoryLimit), editor.WithPreviewMode(mode))
	if tpl != nil {
		ed.Load(tpl.Blocks)
	}

	sess := &editorSession{
		id:          uuid.NewString(),
		editor:      ed,
		template:    tpl,
		lastActive:  s.now(),
		subscribers: make(map[int]chan domain.SessionState),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.WithFields(map[string]interface{}{
		"session_id":  sess.id,
		"template_id": req.TemplateID,
	}).Info("Editor session opened")

	sess.mu.Lock()
	state := sess.stateLocked()
	sess.mu.Unlock()
	return &state, nil
}

func (s *EditorService) GetState(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	state := sess.stateLocked()
	return &state, nil
}

// Apply runs one operation against the session document and publishes the new state
func (s *EditorService) Apply(ctx context.Context, sessionID string, op domain.EditorOperation) (*domain.SessionState, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "EditorService", "Apply")
	defer span.End()
	span.AddAttributes(
		trace.StringAttribute("session_id", sessionID),
		trace.StringAttribute("operation", string(op.Type)),
	)

	if err := op.Validate(); err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		return nil, &domain.ErrSessionNotFound{SessionID: sessionID}
	}
	if err := applyOperation(sess.editor, op); err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, err
	}
	sess.lastActive = s.now()

	tracing.RecordEditorOperation(ctx, string(op.Type))

	state := sess.stateLocked()
	sess.publishLocked(state)
	return &state, nil
}

func applyOperation(ed *editor.Editor, op domain.EditorOperation) error {
	var target blocks.Block
	if op.BlockID != "" {
		doc := ed.Document()
		idx := document.Find(doc, op.BlockID)
		if idx < 0 {
			return &domain.ErrBlockNotFound{BlockID: op.BlockID}
		}
		target = doc[idx]
	}

	switch op.Type {
	case domain.EditorOperationAdd:
		if !op.BlockType.IsKnown() {
			return domain.NewValidationError(fmt.Sprintf("unknown block type: %s", op.BlockType))
		}
		ed.AddBlock(op.BlockType)
	case domain.EditorOperationUpdate:
		patch, err := op.Patch(target.Type)
		if err != nil {
			return domain.NewValidationError(err.Error())
		}
		ed.UpdateBlock(op.BlockID, patch)
	case domain.EditorOperationDelete:
		ed.DeleteBlock(op.BlockID)
	case domain.EditorOperationDuplicate:
		ed.DuplicateBlock(op.BlockID)
	case domain.EditorOperationMove:
		ed.MoveBlock(op.BlockID, op.Direction)
	case domain.EditorOperationReorder:
		ed.ReorderBlock(op.BlockID, *op.ToIndex)
	case domain.EditorOperationSelect:
		ed.Select(op.BlockID)
	case domain.EditorOperationUndo:
		ed.Undo()
	case domain.EditorOperationRedo:
		ed.Redo()
	case domain.EditorOperationSetPreviewMode:
		if err := ed.SetPreviewMode(op.PreviewMode); err != nil {
			return domain.NewValidationError(err.Error())
		}
	}
	return nil
}

// Preview renders the session document for mode, or the session preview mode when empty
func (s *EditorService) Preview(ctx context.Context, sessionID string, mode blocks.PreviewMode) (string, error) {
	_, span := tracing.StartServiceSpan(ctx, "EditorService", "Preview")
	defer span.End()

	sess, err := s.getSession(sessionID)
	if err != nil {
		return "", err
	}

	sess.mu.Lock()
	doc := sess.editor.Document()
	selected := sess.editor.Selected()
	if mode == "" {
		mode = sess.editor.PreviewMode()
	}
	sess.lastActive = s.now()
	sess.mu.Unlock()

	if err := mode.Validate(); err != nil {
		return "", domain.NewValidationError(err.Error())
	}

	return htmlgen.RenderDocument(doc, mode, htmlgen.PreviewOptions{
		EditMode:   true,
		SelectedID: selected,
		Now:        s.now,
	}), nil
}

// Save persists the session document. A blank session creates a template on its
// first save; later saves store a new version.
func (s *EditorService) Save(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	ctx, span := tracing.StartServiceSpan(ctx, "EditorService", "Save")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("session_id", sessionID))

	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, err
	}

	if _, err := s.save(ctx, sess, false); err != nil {
		tracing.MarkSpanError(ctx, err)
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	state := sess.stateLocked()
	return &state, nil
}

// save stores the current snapshot. The document is never rolled back: on
// failure the error is recorded on the session and the edits stay dirty.
// onlyDirty skips sessions with nothing new to persist. It reports whether the
// store was called.
func (s *EditorService) save(ctx context.Context, sess *editorSession, onlyDirty bool) (bool, error) {
	sess.saveMu.Lock()
	defer sess.saveMu.Unlock()

	sess.mu.Lock()
	if (onlyDirty || sess.template != nil) && !sess.editor.Dirty() {
		sess.mu.Unlock()
		return false, nil
	}
	doc, revision := sess.editor.SaveSnapshot()
	var tpl domain.Template
	existing := sess.template != nil
	if existing {
		tpl = *sess.template
	} else {
		tpl = domain.Template{
			ID:       domain.NewTemplateID(),
			Name:     untitledTemplateName,
			Category: domain.TemplateCategoryOther,
		}
	}
	sess.mu.Unlock()

	tpl.Blocks = doc
	var err error
	if existing {
		err = s.templates.UpdateTemplate(ctx, &tpl)
	} else {
		err = s.templates.CreateTemplate(ctx, &tpl)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err != nil {
		sess.lastSaveError = err.Error()
		s.logger.WithFields(map[string]interface{}{
			"session_id":  sess.id,
			"template_id": tpl.ID,
		}).Error(fmt.Sprintf("Failed to save editor session: %v", err))
		sess.publishLocked(sess.stateLocked())
		return true, err
	}

	saved := tpl
	sess.template = &saved
	now := s.now().UTC()
	sess.lastSavedAt = &now
	sess.lastSaveError = ""
	sess.editor.MarkSaved(revision)
	sess.publishLocked(sess.stateLocked())
	return true, nil
}

// AutoSave saves every dirty session
func (s *EditorService) AutoSave(ctx context.Context) {
	for _, sess := range s.snapshotSessions() {
		if saved, err := s.save(ctx, sess, true); saved {
			tracing.RecordAutoSave(ctx, err)
		}
	}
}

// EvictIdle saves and closes sessions inactive for longer than the idle TTL
func (s *EditorService) EvictIdle(ctx context.Context) {
	if s.config.SessionIdleTTL <= 0 {
		return
	}
	cutoff := s.now().Add(-s.config.SessionIdleTTL)
	for _, sess := range s.snapshotSessions() {
		sess.mu.Lock()
		idle := sess.lastActive.Before(cutoff)
		sess.mu.Unlock()
		if !idle {
			continue
		}
		s.logger.WithField("session_id", sess.id).Info("Evicting idle editor session")
		if err := s.close(ctx, sess); err != nil {
			s.logger.WithField("session_id", sess.id).Warn(fmt.Sprintf("Idle session closed with unsaved changes: %v", err))
		}
	}
}

func (s *EditorService) snapshotSessions() []*editorSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*editorSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// CloseSession saves pending changes, notifies subscribers and forgets the session.
// The session is removed even when the final save fails; the error is returned.
func (s *EditorService) CloseSession(ctx context.Context, sessionID string) error {
	ctx, span := tracing.StartServiceSpan(ctx, "EditorService", "CloseSession")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("session_id", sessionID))

	sess, err := s.getSession(sessionID)
	if err != nil {
		return err
	}
	if err := s.close(ctx, sess); err != nil {
		tracing.MarkSpanError(ctx, err)
		return fmt.Errorf("session closed with unsaved changes: %w", err)
	}
	return nil
}

func (s *EditorService) close(ctx context.Context, sess *editorSession) error {
	_, saveErr := s.save(ctx, sess, true)
	s.detach(sess)
	return saveErr
}

// detach forgets the session, publishes its final state and closes every
// subscriber channel
func (s *EditorService) detach(sess *editorSession) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return
	}
	sess.closed = true
	sess.publishLocked(sess.stateLocked())
	for id, ch := range sess.subscribers {
		close(ch)
		delete(sess.subscribers, id)
	}
}

// Document returns the sorted session document and a copy of the template it edits,
// nil for a session that was never saved
func (s *EditorService) Document(ctx context.Context, sessionID string) (document.Document, *domain.Template, error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	doc, _ := sess.editor.SaveSnapshot()
	if sess.template == nil {
		return doc, nil, nil
	}
	tpl := *sess.template
	return doc, &tpl, nil
}

// Subscribe streams the session state after every change. The channel is closed
// when the session closes; cancel releases it earlier.
func (s *EditorService) Subscribe(sessionID string) (<-chan domain.SessionState, func(), error) {
	sess, err := s.getSession(sessionID)
	if err != nil {
		return nil, nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, nil, &domain.ErrSessionNotFound{SessionID: sessionID}
	}

	id := sess.nextSubID
	sess.nextSubID++
	ch := make(chan domain.SessionState, subscriberBuffer)
	sess.subscribers[id] = ch
	ch <- sess.stateLocked()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			sess.mu.Lock()
			defer sess.mu.Unlock()
			if c, ok := sess.subscribers[id]; ok {
				close(c)
				delete(sess.subscribers, id)
			}
		})
	}
	return ch, cancel, nil
}
