package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/medibook/services/portal-service/internal/model"
)

// Session is one patient's in-progress selection of doctor, date and time.
// A newer selection cancels any fetch still running for an older one and its result is discarded.
type Session struct {
	ID string

	mu       sync.Mutex
	doctor   *model.Doctor
	dates    []availability.CandidateDate
	date     string
	day      time.Time
	slots    []string
	start    string
	quote    *Quote
	gen      uint64
	cancel   context.CancelFunc
	lastSeen time.Time
}

// View is a snapshot of a session for callers.
type View struct {
	SessionID   string                       `json:"session_id"`
	DoctorID    string                       `json:"doctor_id,omitempty"`
	Dates       []availability.CandidateDate `json:"dates"`
	Date        string                       `json:"date,omitempty"`
	Slots       []string                     `json:"slots"`
	FullyBooked bool                         `json:"fully_booked"`
	StartTime   string                       `json:"start_time,omitempty"`
	Quote       *Quote                       `json:"quote,omitempty"`
}

func (s *Session) view() View {
	v := View{
		SessionID: s.ID,
		Dates:     s.dates,
		Date:      s.date,
		Slots:     s.slots,
		StartTime: s.start,
		Quote:     s.quote,
	}
	if v.Dates == nil {
		v.Dates = []availability.CandidateDate{}
	}
	if v.Slots == nil {
		v.Slots = []string{}
	}
	if s.doctor != nil {
		v.DoctorID = string(s.doctor.DoctorID)
	}
	v.FullyBooked = s.date != "" && len(v.Slots) == 0
	return v
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// begin starts a new selection generation, cancelling the previous one.
// Callers hold s.mu.
func (s *Session) begin(ctx context.Context) (context.Context, uint64) {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	fctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return fctx, s.gen
}

// finish reports whether gen is still current and releases its context.
// Callers hold s.mu.
func (s *Session) finish(gen uint64) bool {
	if s.gen != gen {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return true
}

// SelectDoctor loads the doctor fresh and resets date and time.
func (svc *Service) SelectDoctor(ctx context.Context, sess *Session, doctorID string) (View, error) {
	if doctorID == "" {
		return View{}, ErrNoDoctor
	}
	sess.mu.Lock()
	fctx, gen := sess.begin(ctx)
	sess.doctor, sess.dates = nil, nil
	sess.clearDate()
	sess.mu.Unlock()

	d, err := svc.Doctor(fctx, doctorID)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.finish(gen) {
		return View{}, ErrSuperseded
	}
	if err != nil {
		return View{}, err
	}
	sess.doctor = &d
	sess.dates = availability.AvailableDates(svc.today(), d.Availability.Windows())
	return sess.view(), nil
}

// SelectDate clears the time and fetches the booked slots for the new date.
// An empty date clears the selection without fetching.
func (svc *Service) SelectDate(ctx context.Context, sess *Session, date string) (View, error) {
	sess.mu.Lock()
	if sess.doctor == nil {
		sess.mu.Unlock()
		return View{}, ErrNoDoctor
	}
	fctx, gen := sess.begin(ctx)
	sess.clearDate()
	if date == "" {
		sess.finish(gen)
		v := sess.view()
		sess.mu.Unlock()
		return v, nil
	}
	d := *sess.doctor
	day, err := svc.candidateDate(d, date)
	if err != nil {
		sess.finish(gen)
		sess.mu.Unlock()
		return View{}, err
	}
	sess.date, sess.day = date, day
	sess.mu.Unlock()

	booked, err := svc.api.FetchBookedSlots(fctx, string(d.DoctorID), date)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.finish(gen) {
		return View{}, ErrSuperseded
	}
	if err != nil {
		return View{}, err
	}
	sess.slots = bookable(day, d, booked).Slots
	return sess.view(), nil
}

// SelectTime records the start time and re-derives the fee. An unmatched time quotes a zero fee.
func (svc *Service) SelectTime(_ context.Context, sess *Session, startTime string) (View, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.doctor == nil {
		return View{}, ErrNoDoctor
	}
	if sess.date == "" {
		return View{}, ErrSelectionIncomplete
	}
	q, err := quote(sess.day, startTime, *sess.doctor)
	if err != nil {
		return View{}, err
	}
	sess.start = q.StartTime
	sess.quote = &q
	return sess.view(), nil
}

// Confirm submits the current selection for userID. On success the date and time are cleared.
func (svc *Service) Confirm(ctx context.Context, sess *Session, userID, requestID string) (Confirmation, error) {
	sess.mu.Lock()
	if sess.doctor == nil {
		sess.mu.Unlock()
		return svc.reject(ErrNoDoctor)
	}
	d := *sess.doctor
	req := Request{
		UserID:    userID,
		DoctorID:  string(d.DoctorID),
		Date:      sess.date,
		StartTime: sess.start,
		RequestID: requestID,
	}
	sess.mu.Unlock()

	conf, err := svc.submit(ctx, d, req)
	if err != nil {
		return Confirmation{}, err
	}

	sess.mu.Lock()
	if sess.date == req.Date && sess.start == req.StartTime {
		sess.clearDate()
	}
	sess.mu.Unlock()
	return conf, nil
}

// clearDate drops the date and everything derived from it. Callers hold s.mu.
func (s *Session) clearDate() {
	s.date = ""
	s.day = time.Time{}
	s.slots = nil
	s.start = ""
	s.quote = nil
}

// Store keeps sessions in memory until they sit idle longer than the idle TTL.
type Store struct {
	mu       sync.Mutex
	idle     time.Duration
	now      func() time.Time
	sessions map[string]*Session
}

func NewStore(idle time.Duration) *Store {
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &Store{
		idle:     idle,
		now:      time.Now,
		sessions: map[string]*Session{},
	}
}

func (st *Store) Create() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess := &Session{ID: uuid.NewString(), lastSeen: st.now()}
	st.sessions[sess.ID] = sess
	return sess
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	now := st.now()
	sess.mu.Lock()
	expired := now.Sub(sess.lastSeen) > st.idle
	if !expired {
		sess.lastSeen = now
	}
	sess.mu.Unlock()
	if expired {
		st.drop(id, sess)
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes idle sessions and returns how many were dropped.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := st.now()
	dropped := 0
	for id, sess := range st.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.lastSeen) > st.idle
		sess.mu.Unlock()
		if idle {
			st.drop(id, sess)
			dropped++
		}
	}
	return dropped
}

// drop removes a session and cancels any fetch it still has running. Callers hold st.mu.
func (st *Store) drop(id string, sess *Session) {
	delete(st.sessions, id)
	sess.mu.Lock()
	if sess.cancel != nil {
		sess.cancel()
		sess.cancel = nil
	}
	sess.gen++
	sess.mu.Unlock()
}

// Run sweeps every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}
