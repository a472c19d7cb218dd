package service

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/beka-birhanu/mazegen/config"
	"github.com/beka-birhanu/mazegen/maze"
	"github.com/beka-birhanu/mazegen/service/i"
	"github.com/google/uuid"
)

const (
	defaultMaxSessions  = 256
	defaultMaxDimension = 100
	defaultStepInterval = 5 * time.Millisecond
	defaultSessionTTL   = 10 * time.Minute

	// subscriberBuffer is how many step events a subscriber may lag behind
	// before its subscription is closed.
	subscriberBuffer = 256
)

// Session errors.
var (
	ErrSessionNotFound     = errors.New("maze session not found")
	ErrTooManySessions     = errors.New("too many maze sessions")
	ErrInvalidDimensions   = errors.New("maze dimensions out of range")
	ErrAnimationRunning    = errors.New("maze animation already running")
	ErrAnimationNotRunning = errors.New("maze animation not running")
	ErrGenerationComplete  = errors.New("maze generation already complete")
	ErrInvalidInterval     = errors.New("step interval must be positive")
)

// Config configures a MazeSessionManager. Zero values select defaults.
type Config struct {
	MaxSessions  int
	MaxDimension int
	StepInterval time.Duration // default animation tick
	SessionTTL   time.Duration // idle time before Expire drops a session
	Logger       *log.Logger
	Now          func() time.Time
}

type session struct {
	id        uuid.UUID
	grid      *maze.Grid
	generator *maze.Generator
	lastUsed  time.Time

	stopAnimation context.CancelFunc // nil unless animating
	subscribers   map[int]chan i.StepEvent
	nextSubID     int
	closed        bool
	sync.Mutex
}

// MazeSessionManager keeps maze sessions in memory and drives their animation
// clocks.
type MazeSessionManager struct {
	sessions map[uuid.UUID]*session
	cfg      Config
	logger   *log.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// lifecycle orders wg.Add in StartAnimation against cancel in StopAll.
	// It is a leaf lock, taken while a session lock may be held.
	lifecycle sync.Mutex
	sync.RWMutex
}

// NewMazeSessionManager creates a manager. Call StopAll to halt every animation.
func NewMazeSessionManager(c *Config) (*MazeSessionManager, error) {
	if c == nil {
		c = &Config{}
	}
	cfg := *c

	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = defaultMaxSessions
	}

	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = defaultMaxDimension
	}

	if cfg.StepInterval <= 0 {
		cfg.StepInterval = defaultStepInterval
	}

	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = defaultSessionTTL
	}

	if cfg.Logger == nil {
		// Discard logging if no logger is set
		cfg.Logger = log.New(io.Discard, "", 0)
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &MazeSessionManager{
		sessions: make(map[uuid.UUID]*session),
		cfg:      cfg,
		logger:   cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Create builds a new session holding a rows×cols grid whose generator has been
// reset and is ready to step.
func (m *MazeSessionManager) Create(rows, cols int, seed *int64) (i.MazeSnapshot, error) {
	if !m.validDimensions(rows, cols) {
		return i.MazeSnapshot{}, ErrInvalidDimensions
	}

	grid, err := maze.NewGrid(rows, cols)
	if err != nil {
		return i.MazeSnapshot{}, err
	}

	opts := &maze.Options{}
	if seed != nil {
		opts.Source = maze.NewSource(*seed)
	}
	generator, err := maze.NewGenerator(grid, opts)
	if err != nil {
		return i.MazeSnapshot{}, err
	}
	if err := generator.Reset(nil); err != nil {
		return i.MazeSnapshot{}, err
	}

	s := &session{
		grid:        grid,
		generator:   generator,
		lastUsed:    m.cfg.Now(),
		subscribers: make(map[int]chan i.StepEvent),
	}

	m.Lock()
	if len(m.sessions) >= m.cfg.MaxSessions {
		m.Unlock()
		m.logger.Printf("%s[ERROR]%s refusing maze session: %d sessions held", config.LogErrorColor, config.LogColorReset, m.cfg.MaxSessions)
		return i.MazeSnapshot{}, ErrTooManySessions
	}
	s.id = m.saveSession(s)
	m.Unlock()

	m.logger.Printf("%s[INFO]%s created %dx%d maze session: %s", config.LogInfoColor, config.LogColorReset, rows, cols, s.id)

	s.Lock()
	defer s.Unlock()
	return s.snapshot(), nil
}

// saveSession stores s under a fresh ID. Callers hold the write lock.
func (m *MazeSessionManager) saveSession(s *session) uuid.UUID {
	sessionID := uuid.New()
	for {
		if _, ok := m.sessions[sessionID]; !ok {
			break
		}
		sessionID = uuid.New()
	}

	m.sessions[sessionID] = s
	return sessionID
}

// Snapshot returns the current state of a session.
func (m *MazeSessionManager) Snapshot(id uuid.UUID) (i.MazeSnapshot, error) {
	s, err := m.acquire(id)
	if err != nil {
		return i.MazeSnapshot{}, err
	}
	defer s.Unlock()

	return s.snapshot(), nil
}

// Render returns the ASCII drawing of a session's grid.
func (m *MazeSessionManager) Render(id uuid.UUID) (string, error) {
	s, err := m.acquire(id)
	if err != nil {
		return "", err
	}
	defer s.Unlock()

	return s.grid.String(), nil
}

// Step advances a session by one generation step and publishes the result to
// its subscribers.
func (m *MazeSessionManager) Step(id uuid.UUID) (i.StepEvent, error) {
	s, err := m.acquire(id)
	if err != nil {
		return i.StepEvent{}, err
	}
	defer s.Unlock()

	if s.stopAnimation != nil {
		return i.StepEvent{}, ErrAnimationRunning
	}

	event, err := s.step()
	if err != nil {
		m.logger.Printf("%s[ERROR]%s stepping maze %s: %s", config.LogErrorColor, config.LogColorReset, id, err)
		return i.StepEvent{}, err
	}
	m.publish(s, event)
	return event, nil
}

// Complete runs a session's generation to the end.
func (m *MazeSessionManager) Complete(id uuid.UUID) (i.MazeSnapshot, error) {
	s, err := m.acquire(id)
	if err != nil {
		return i.MazeSnapshot{}, err
	}
	defer s.Unlock()

	if s.stopAnimation != nil {
		return i.MazeSnapshot{}, ErrAnimationRunning
	}

	performed, err := s.generator.RunToCompletion()
	if err != nil {
		m.logger.Printf("%s[ERROR]%s completing maze %s: %s", config.LogErrorColor, config.LogColorReset, id, err)
		return i.MazeSnapshot{}, err
	}
	snapshot := s.snapshot()
	if performed > 0 {
		m.publish(s, i.StepEvent{
			MazeID: s.id,
			Steps:  snapshot.Steps,
			Result: maze.StepResult{Complete: true},
			Maze:   &snapshot,
		})
	}
	m.logger.Printf("%s[INFO]%s completed maze %s in %d steps", config.LogInfoColor, config.LogColorReset, id, performed)
	return snapshot, nil
}

// Reset gives a session a freshly built grid, stopping any animation first.
func (m *MazeSessionManager) Reset(id uuid.UUID, rows, cols int) (i.MazeSnapshot, error) {
	s, err := m.acquire(id)
	if err != nil {
		return i.MazeSnapshot{}, err
	}
	defer s.Unlock()

	if rows == 0 {
		rows = s.grid.Rows()
	}
	if cols == 0 {
		cols = s.grid.Cols()
	}
	if !m.validDimensions(rows, cols) {
		return i.MazeSnapshot{}, ErrInvalidDimensions
	}

	grid, err := maze.NewGrid(rows, cols)
	if err != nil {
		return i.MazeSnapshot{}, err
	}

	s.haltAnimation()
	if err := s.generator.Reset(grid); err != nil {
		return i.MazeSnapshot{}, err
	}
	s.grid = grid

	snapshot := s.snapshot()
	m.publish(s, i.StepEvent{
		MazeID: s.id,
		Steps:  snapshot.Steps,
		Maze:   &snapshot,
	})

	m.logger.Printf("%s[INFO]%s reset maze %s to %dx%d", config.LogInfoColor, config.LogColorReset, id, rows, cols)
	return snapshot, nil
}

// Delete removes a session.
func (m *MazeSessionManager) Delete(id uuid.UUID) error {
	m.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	m.Unlock()

	s.Lock()
	s.close()
	s.Unlock()

	m.logger.Printf("%s[INFO]%s deleted maze session: %s", config.LogInfoColor, config.LogColorReset, id)
	return nil
}

// StartAnimation steps a session on a ticker until it completes, is stopped,
// reset or deleted.
func (m *MazeSessionManager) StartAnimation(id uuid.UUID, interval time.Duration) error {
	if interval < 0 {
		return ErrInvalidInterval
	}
	if interval == 0 {
		interval = m.cfg.StepInterval
	}

	s, err := m.acquire(id)
	if err != nil {
		return err
	}
	defer s.Unlock()

	if s.stopAnimation != nil {
		return ErrAnimationRunning
	}
	if s.generator.State() == maze.Complete {
		return ErrGenerationComplete
	}

	m.lifecycle.Lock()
	if m.ctx.Err() != nil {
		m.lifecycle.Unlock()
		return ErrSessionNotFound
	}
	m.wg.Add(1)
	m.lifecycle.Unlock()

	ctx, cancel := context.WithCancel(m.ctx)
	s.stopAnimation = cancel
	go m.animate(ctx, s, interval)

	m.logger.Printf("%s[INFO]%s animating maze %s every %s", config.LogInfoColor, config.LogColorReset, id, interval)
	return nil
}

// StopAnimation halts a running animation.
func (m *MazeSessionManager) StopAnimation(id uuid.UUID) error {
	s, err := m.acquire(id)
	if err != nil {
		return err
	}
	defer s.Unlock()

	if s.stopAnimation == nil {
		return ErrAnimationNotRunning
	}
	s.haltAnimation()
	return nil
}

// Subscribe registers a listener for a session's step events.
func (m *MazeSessionManager) Subscribe(id uuid.UUID) (<-chan i.StepEvent, func(), error) {
	s, err := m.acquire(id)
	if err != nil {
		return nil, nil, err
	}
	defer s.Unlock()

	subID := s.nextSubID
	s.nextSubID++
	ch := make(chan i.StepEvent, subscriberBuffer)
	s.subscribers[subID] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.Lock()
			defer s.Unlock()
			if sub, ok := s.subscribers[subID]; ok {
				delete(s.subscribers, subID)
				close(sub)
			}
		})
	}
	return ch, unsubscribe, nil
}

// Expire drops sessions that have been idle for longer than the session TTL
// and are not animating. It returns the number of sessions dropped.
func (m *MazeSessionManager) Expire(now time.Time) int {
	m.Lock()
	var expired []*session
	for id, s := range m.sessions {
		s.Lock()
		if s.stopAnimation == nil && now.Sub(s.lastUsed) > m.cfg.SessionTTL {
			delete(m.sessions, id)
			expired = append(expired, s)
		}
		s.Unlock()
	}
	m.Unlock()

	for _, s := range expired {
		s.Lock()
		s.close()
		s.Unlock()
		m.logger.Printf("%s[INFO]%s expired idle maze session: %s", config.LogInfoColor, config.LogColorReset, s.id)
	}
	return len(expired)
}

// Len returns the number of sessions held.
func (m *MazeSessionManager) Len() int {
	m.RLock()
	defer m.RUnlock()
	return len(m.sessions)
}

// StopAll halts every animation and waits for the animation goroutines to exit.
func (m *MazeSessionManager) StopAll() {
	m.lifecycle.Lock()
	m.cancel()
	m.lifecycle.Unlock()
	m.wg.Wait()

	m.Lock()
	defer m.Unlock()
	for id, s := range m.sessions {
		s.Lock()
		s.close()
		s.Unlock()
		delete(m.sessions, id)
	}
}

// animate is the external clock for one session's generator.
func (m *MazeSessionManager) animate(ctx context.Context, s *session, interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Lock()
			// A stop, reset or delete may have raced with this tick.
			if ctx.Err() != nil {
				s.Unlock()
				return
			}
			event, err := s.step()
			if err != nil {
				s.haltAnimation()
				s.Unlock()
				m.logger.Printf("%s[ERROR]%s animating maze %s: %s", config.LogErrorColor, config.LogColorReset, s.id, err)
				return
			}
			m.publish(s, event)
			if event.Result.Complete {
				s.haltAnimation()
				s.Unlock()
				m.logger.Printf("%s[INFO]%s animation of maze %s complete after %d steps", config.LogInfoColor, config.LogColorReset, s.id, event.Steps)
				return
			}
			s.Unlock()
		}
	}
}

// publish fans an event out to subscribers without blocking. A subscriber whose
// buffer is full has missed an event, so its channel is closed rather than left
// out of sync. Callers hold s's lock.
func (m *MazeSessionManager) publish(s *session, event i.StepEvent) {
	for subID, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			delete(s.subscribers, subID)
			close(ch)
			m.logger.Printf("%s[WARN]%s closing subscription %d of maze %s: subscriber fell behind", config.LogWarnColor, config.LogColorReset, subID, s.id)
		}
	}
}

// acquire looks a session up and returns it locked, refreshing its idle timer.
func (m *MazeSessionManager) acquire(id uuid.UUID) (*session, error) {
	m.RLock()
	s, ok := m.sessions[id]
	m.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	s.Lock()
	if s.closed {
		s.Unlock()
		return nil, ErrSessionNotFound
	}
	s.lastUsed = m.cfg.Now()
	return s, nil
}

func (m *MazeSessionManager) validDimensions(rows, cols int) bool {
	return rows > 0 && cols > 0 && rows <= m.cfg.MaxDimension && cols <= m.cfg.MaxDimension
}

// step runs one generator step. Stepping a complete maze reports completion
// instead of failing. Callers hold s's lock.
func (s *session) step() (i.StepEvent, error) {
	result, err := s.generator.Step()
	if err != nil && !errors.Is(err, maze.ErrEmptyStack) {
		return i.StepEvent{}, err
	}
	return i.StepEvent{
		MazeID: s.id,
		Steps:  s.generator.Steps(),
		Result: result,
	}, nil
}

func (s *session) snapshot() i.MazeSnapshot {
	return i.MazeSnapshot{
		ID:        s.id,
		Rows:      s.grid.Rows(),
		Cols:      s.grid.Cols(),
		State:     s.generator.State(),
		Steps:     s.generator.Steps(),
		Animating: s.stopAnimation != nil,
		Cells:     s.grid.Snapshot(),
	}
}

func (s *session) haltAnimation() {
	if s.stopAnimation != nil {
		s.stopAnimation()
		s.stopAnimation = nil
	}
}

// close stops animation and ends every subscription. Callers hold s's lock.
func (s *session) close() {
	s.haltAnimation()
	for subID, ch := range s.subscribers {
		delete(s.subscribers, subID)
		close(ch)
	}
	s.closed = true
}
