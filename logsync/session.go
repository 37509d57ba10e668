// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logsync

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/bmlog/lib/clock"
	"github.com/bureau-foundation/bmlog/logstore"
	"github.com/bureau-foundation/bmlog/n2k"
)

const (
	// DefaultRetryTimeout is how long the session waits for a page
	// before resending the request.
	DefaultRetryTimeout = time.Second

	// DefaultResyncInterval is how long an idle session waits after a
	// completed sync before pulling new entries again.
	DefaultResyncInterval = 60 * time.Second

	// maxSessionID is the highest session id used; 0 and the values
	// above are reserved.
	maxSessionID = 0xfd
)

// State is the request state of a Session.
type State int

const (
	StateIdle State = iota
	StateRequestPending
	StateWaitPage
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestPending:
		return "request-pending"
	case StateWaitPage:
		return "wait-page"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Mode is how received entries are reconciled with the store.
type Mode int

const (
	ModeIdle Mode = iota

	// ModeFresh commits everything; the store was empty or the device
	// log was reset.
	ModeFresh

	// ModeSearch skips entries until the store's newest entry is seen.
	ModeSearch

	// ModeAppend commits everything after the matched entry.
	ModeAppend
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeFresh:
		return "fresh"
	case ModeSearch:
		return "search"
	case ModeAppend:
		return "append"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Sender transmits fast-packet messages. *n2k.Transmitter satisfies it.
type Sender interface {
	SendFast(pgn uint32, destination uint8, data []byte) error
}

// Config holds the dependencies of a Session.
type Config struct {
	Store  *logstore.Store
	Sender Sender
	Clock  clock.Clock
	Logger *slog.Logger

	// RetryTimeout defaults to DefaultRetryTimeout.
	RetryTimeout time.Duration

	// ResyncInterval defaults to DefaultResyncInterval.
	ResyncInterval time.Duration
}

// Status is a snapshot of a Session.
type Status struct {
	State        State
	Mode         Mode
	Request      Request
	Device       uint8
	DeviceKnown  bool
	LastSend     time.Time
	LastSync     time.Time
	Scratch      int
	Entries      int
	Written      int
	Retries      int
	CycleEntries int
}

// Session is the log-sync state machine. Safe for concurrent use; see
// the package documentation for the locking contract.
type Session struct {
	store          *logstore.Store
	sender         Sender
	clock          clock.Clock
	logger         *slog.Logger
	retryTimeout   time.Duration
	resyncInterval time.Duration

	mu          sync.Mutex
	state       State
	mode        Mode
	request     Request
	sessionID   uint8
	device      uint8
	deviceKnown bool
	lastSend    time.Time
	lastSync    time.Time
	retries     int

	// scratch holds the records of the page in flight.
	scratch []logstore.Entry

	// committed counts the entries appended during the current cycle.
	committed int
}

// NewSession returns an idle Session.
func NewSession(config Config) *Session {
	if config.RetryTimeout <= 0 {
		config.RetryTimeout = DefaultRetryTimeout
	}
	if config.ResyncInterval <= 0 {
		config.ResyncInterval = DefaultResyncInterval
	}
	return &Session{
		store:          config.Store,
		sender:         config.Sender,
		clock:          config.Clock,
		logger:         config.Logger,
		retryTimeout:   config.RetryTimeout,
		resyncInterval: config.ResyncInterval,
		scratch:        make([]logstore.Entry, 0, PageCapacity),
	}
}

// nextSessionID advances the rolling session id through 1..0xfd.
func (s *Session) nextSessionID() uint8 {
	s.sessionID++
	if s.sessionID == 0 || s.sessionID > maxSessionID {
		s.sessionID = 1
	}
	return s.sessionID
}

// beginCycle prepares the request that starts a sync: the first page
// into an empty store, or the page of the newest stored entry.
func (s *Session) beginCycle() {
	newest, ok := s.store.Newest()
	if !ok {
		s.mode = ModeFresh
		s.request = Request{Command: CommandRequestFirst, Index: 0}
	} else {
		s.mode = ModeSearch
		s.request = Request{Command: CommandRequest, Index: newest.Page()}
	}
	s.request.SessionID = s.nextSessionID()
	s.committed = 0
	s.scratch = s.scratch[:0]
	s.state = StateRequestPending
	s.logger.Info("log sync starting",
		"mode", s.mode,
		"command", s.request.Command,
		"index", s.request.Index,
		"session_id", s.request.SessionID,
	)
}

// send transmits the current request and moves to WaitPage. A send
// failure is logged and handled as a lost request: the retry timer
// resends it.
func (s *Session) send() {
	if err := s.sender.SendFast(n2k.PGNPrivateLog, n2k.AddressGlobal, s.request.Encode()); err != nil {
		s.logger.Warn("sending log request failed",
			"command", s.request.Command,
			"session_id", s.request.SessionID,
			"error", err,
		)
	} else {
		s.logger.Debug("sent log request",
			"command", s.request.Command,
			"index", s.request.Index,
			"session_id", s.request.SessionID,
		)
	}
	s.lastSend = s.clock.Now()
	s.state = StateWaitPage
}

// DeviceAnnounced is called when the battery monitor appears on the
// bus or changes address. An idle session starts a sync cycle; a busy
// one only records the address.
func (s *Session) DeviceAnnounced(address uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.device = address
	s.deviceKnown = true
	if s.state != StateIdle {
		s.logger.Debug("device announced during sync", "address", address, "state", s.state)
		return
	}
	s.logger.Info("battery monitor announced", "address", address)
	s.beginCycle()
}

// DeviceLost is called when the battery monitor stops broadcasting.
// The periodic resync pauses until it is announced again.
func (s *Session) DeviceLost() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceKnown = false
}

// Tick drives timed transitions. It is called by the periodic driver,
// typically ten times a second.
func (s *Session) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	switch s.state {
	case StateRequestPending:
		s.send()
	case StateWaitPage:
		if now.Sub(s.lastSend) >= s.retryTimeout {
			s.logger.Warn("log request timed out, resending",
				"command", s.request.Command,
				"index", s.request.Index,
				"session_id", s.request.SessionID,
				"discarded", len(s.scratch),
			)
			s.scratch = s.scratch[:0]
			s.retries++
			s.send()
		}
	case StateIdle:
		if s.deviceKnown && !s.lastSync.IsZero() && now.Sub(s.lastSync) >= s.resyncInterval {
			s.beginCycle()
			s.send()
		}
	}
}

// PageReceived handles one reply message. Replies are ignored unless
// a page is awaited and the session id matches the outstanding request.
// Records accumulate in scratch; the terminal reply commits them and
// queues the request for the next page.
func (s *Session) PageReceived(reply Reply) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateWaitPage || reply.SessionID != s.request.SessionID {
		s.logger.Debug("ignoring log reply",
			"session_id", reply.SessionID,
			"want_session_id", s.request.SessionID,
			"state", s.state,
		)
		return
	}

	for _, record := range reply.Records {
		if len(s.scratch) == PageCapacity {
			s.logger.Warn("log page overflow, dropping record",
				"index", reply.Index,
				"session_id", reply.SessionID,
			)
			break
		}
		s.scratch = append(s.scratch, record.Entry(logstore.EntryID(reply.Index, len(s.scratch))))
	}
	if !reply.Terminal {
		return
	}

	s.commitPage()
	s.request = Request{
		Command:   CommandRequestNext,
		SessionID: s.nextSessionID(),
		Index:     reply.Index,
	}
	s.state = StateRequestPending
}

// commitPage reconciles scratch with the store according to the mode.
func (s *Session) commitPage() {
	var newestID uint32
	if newest, ok := s.store.Newest(); ok {
		newestID = newest.ID
	}

	committed := 0
	for _, entry := range s.scratch {
		switch s.mode {
		case ModeSearch:
			if entry.ID == newestID {
				s.logger.Debug("found newest stored entry", "id", fmt.Sprintf("%#x", entry.ID))
				s.mode = ModeAppend
			}
		case ModeFresh, ModeAppend:
			s.store.Append(entry)
			committed++
		}
	}
	s.committed += committed
	s.logger.Debug("log page received",
		"index", s.request.Index,
		"records", len(s.scratch),
		"committed", committed,
		"mode", s.mode,
	)
	s.scratch = s.scratch[:0]
}

// ErrorReceived handles a device error, under the same session id
// filter as PageReceived. NotFound restarts a fresh pull; Last ends the
// cycle: times are reconstructed for new entries and the store is
// flushed.
func (s *Session) ErrorReceived(reply ErrorReply) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateWaitPage || reply.SessionID != s.request.SessionID {
		s.logger.Debug("ignoring log error",
			"code", reply.Code,
			"session_id", reply.SessionID,
			"want_session_id", s.request.SessionID,
			"state", s.state,
		)
		return
	}

	switch reply.Code {
	case ErrorNotFound:
		s.logger.Info("log index not found, device log was reset",
			"index", s.request.Index,
			"command", s.request.Command,
		)
		s.mode = ModeFresh
		s.request = Request{
			Command:   CommandRequestFirst,
			SessionID: s.nextSessionID(),
			Index:     0,
		}
		s.scratch = s.scratch[:0]
		s.state = StateRequestPending

	case ErrorLast:
		s.finishCycle()

	default:
		s.logger.Warn("unknown log error code", "code", reply.Code, "session_id", reply.SessionID)
	}
}

func (s *Session) finishCycle() {
	now := s.clock.Now()
	if s.committed > 0 {
		s.store.ReconstructTime(now)
	}
	if err := s.store.Flush(); err != nil {
		s.logger.Warn("flushing log store failed, will retry after next sync",
			"path", s.store.Path(),
			"error", err,
		)
	}
	s.logger.Info("log sync complete",
		"new_entries", s.committed,
		"entries", s.store.Len(),
		"retries", s.retries,
	)
	s.state = StateIdle
	s.mode = ModeIdle
	s.scratch = s.scratch[:0]
	s.lastSync = now
	s.retries = 0
}

// HandleMessage decodes a reassembled private log message and routes
// it to PageReceived or ErrorReceived. Requests from other clients and
// malformed messages are dropped. Reports whether the message was a
// reply or error.
func (s *Session) HandleMessage(message n2k.Message) bool {
	if len(message.Data) == 0 {
		return false
	}
	switch Command(message.Data[0]) {
	case CommandReply:
		reply, err := DecodeReply(message.Data)
		if err != nil {
			s.logger.Debug("dropping malformed log reply", "source", message.Source, "error", err)
			return false
		}
		s.PageReceived(reply)
		return true
	case CommandError:
		reply, err := DecodeError(message.Data)
		if err != nil {
			s.logger.Debug("dropping malformed log error", "source", message.Source, "error", err)
			return false
		}
		s.ErrorReceived(reply)
		return true
	default:
		return false
	}
}

// RequestDeviceReset asks the device to clear its log. It uses its own
// session id and leaves any sync in progress alone; the next sync sees
// NotFound and restarts from the first page.
func (s *Session) RequestDeviceReset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	request := Request{Command: CommandReset, SessionID: s.nextSessionID(), Index: ResetMagic}
	if err := s.sender.SendFast(n2k.PGNPrivateLog, n2k.AddressGlobal, request.Encode()); err != nil {
		return fmt.Errorf("sending log reset: %w", err)
	}
	s.logger.Info("requested device log reset", "session_id", request.SessionID)
	return nil
}

// Status returns a snapshot of the session and its store.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:        s.state,
		Mode:         s.mode,
		Request:      s.request,
		Device:       s.device,
		DeviceKnown:  s.deviceKnown,
		LastSend:     s.lastSend,
		LastSync:     s.lastSync,
		Scratch:      len(s.scratch),
		Entries:      s.store.Len(),
		Written:      s.store.Written(),
		Retries:      s.retries,
		CycleEntries: s.committed,
	}
}

// Block returns a block of the store; see logstore.Store.Block.
func (s *Session) Block(cookie int) (logstore.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Block(cookie)
}

// NextBlock returns the block after cookie's.
func (s *Session) NextBlock(cookie int) (logstore.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.NextBlock(cookie)
}

// PreviousBlock returns the block before cookie's.
func (s *Session) PreviousBlock(cookie int) (logstore.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.PreviousBlock(cookie)
}
