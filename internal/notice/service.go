package notice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"agrigate/internal/audit"
	"agrigate/internal/domain"
	"agrigate/internal/queue"
	"agrigate/internal/storage"
	"agrigate/internal/worker"
)

// Service turns raw notice text into program records. Interpreter failures
// are transient and retried under queue policy; once the retry budget is
// spent the notice is flagged UNPARSED for manual handling rather than
// silently dropped.
type Service struct {
	programs    storage.ProgramStore
	notices     storage.NoticeStore
	interpreter DocumentInterpreter
	auditor     *audit.Service
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithMaxAttempts tells the service the queue's attempt ceiling so it can
// flag a notice on the final failing attempt.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func NewService(programs storage.ProgramStore, notices storage.NoticeStore, interpreter DocumentInterpreter, auditor *audit.Service, opts ...Option) (*Service, error) {
	if programs == nil || notices == nil {
		return nil, fmt.Errorf("program and notice stores are required")
	}
	if interpreter == nil {
		return nil, fmt.Errorf("document interpreter is required")
	}
	s := &Service{
		programs:    programs,
		notices:     notices,
		interpreter: interpreter,
		auditor:     auditor,
		maxAttempts: queue.DefaultPolicy().MaxAttempts,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// HandleJob is the notice-processing topic handler. Re-running with the same
// payload converges: the program upsert is last-write-wins on the same data
// and the notice save overwrites the same record.
func (s *Service) HandleJob(ctx context.Context, job *queue.Job) error {
	var payload queue.NoticePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return worker.Permanent(fmt.Errorf("decode payload: %w", err))
	}
	if payload.NoticeID == "" || payload.Content == "" {
		return worker.Permanent(fmt.Errorf("noticeId and content are required"))
	}

	if err := s.Process(ctx, payload); err != nil {
		if job.Attempts+1 >= s.maxAttempts && !errors.Is(err, worker.ErrPermanent) {
			s.flagUnparsed(ctx, payload)
		}
		return err
	}
	return nil
}

// Process calls the interpreter once and applies the extraction: upsert the
// program keyed by the interpreter's program identifier, then record the
// notice linking raw text and parsed structure.
func (s *Service) Process(ctx context.Context, payload queue.NoticePayload) error {
	extraction, err := s.interpreter.Parse(ctx, payload.Content)
	if err != nil {
		return fmt.Errorf("interpret notice %s: %w", payload.NoticeID, err)
	}
	if extraction.ProgramID == "" {
		// Malformed extraction; retried under queue policy like any other
		// interpreter failure.
		return fmt.Errorf("interpret notice %s: extraction missing program id", payload.NoticeID)
	}

	program, err := s.upsertProgram(ctx, extraction)
	if err != nil {
		return err
	}

	parsed, err := json.Marshal(extraction)
	if err != nil {
		return fmt.Errorf("encode extraction: %w", err)
	}
	notice := domain.Notice{
		ID:          payload.NoticeID,
		ProgramID:   program.ID,
		Title:       payload.Title,
		Content:     payload.Content,
		ParsedData:  parsed,
		PublishDate: payload.PublishDate,
		Status:      domain.NoticeParsed,
	}
	if err := s.notices.Save(ctx, notice); err != nil {
		return fmt.Errorf("save notice %s: %w", notice.ID, err)
	}

	if s.auditor != nil {
		event := domain.AuditEvent{
			Actor:      "system",
			EntityType: "notice",
			EntityID:   notice.ID,
			Action:     domain.AuditActionNoticeParsed,
			NewData:    parsed,
			Metadata:   map[string]any{"programId": extraction.ProgramID},
		}
		if err := s.auditor.Emit(ctx, event); err != nil {
			s.logger.Warn("audit emit failed", "notice_id", notice.ID, "error", err)
		}
	}
	return nil
}

// upsertProgram creates or updates a program keyed by the external program
// identifier. Updates are last-write-wins on rule and rate fields; a missing
// program period defaults to today .. +365 days.
func (s *Service) upsertProgram(ctx context.Context, extraction *Extraction) (domain.Program, error) {
	start, end := s.programWindow(extraction.ProgramPeriod)

	existing, err := s.programs.FindByProgramID(ctx, extraction.ProgramID)
	switch {
	case err == nil:
		existing.Name = extraction.Name
		existing.Description = extraction.Description
		existing.EligibilityRules = extraction.EligibilityRules
		existing.PaymentRates = extraction.PaymentRates
		existing.FormsRequired = extraction.FormsRequired
		existing.StartDate = start
		existing.EndDate = end
		if err := s.programs.Save(ctx, existing); err != nil {
			return domain.Program{}, fmt.Errorf("update program %s: %w", extraction.ProgramID, err)
		}
		return existing, nil

	case errors.Is(err, storage.ErrNotFound):
		program := domain.Program{
			ID:               uuid.NewString(),
			ProgramID:        extraction.ProgramID,
			Name:             extraction.Name,
			Description:      extraction.Description,
			EligibilityRules: extraction.EligibilityRules,
			PaymentRates:     extraction.PaymentRates,
			FormsRequired:    extraction.FormsRequired,
			StartDate:        start,
			EndDate:          end,
			IsActive:         true,
		}
		if err := s.programs.Save(ctx, program); err != nil {
			return domain.Program{}, fmt.Errorf("create program %s: %w", extraction.ProgramID, err)
		}
		return program, nil

	default:
		return domain.Program{}, fmt.Errorf("find program %s: %w", extraction.ProgramID, err)
	}
}

func (s *Service) programWindow(period ProgramPeriod) (time.Time, time.Time) {
	defStart, defEnd := domain.DefaultProgramWindow(s.now())
	start, end := defStart, defEnd
	if period.Start != nil {
		start = *period.Start
	}
	if period.End != nil {
		end = *period.End
	}
	return start, end
}

// flagUnparsed surfaces a notice whose parse job is about to dead-letter.
func (s *Service) flagUnparsed(ctx context.Context, payload queue.NoticePayload) {
	notice, err := s.notices.Get(ctx, payload.NoticeID)
	if err != nil {
		notice = domain.Notice{
			ID:          payload.NoticeID,
			Title:       payload.Title,
			Content:     payload.Content,
			PublishDate: payload.PublishDate,
		}
	}
	notice.Status = domain.NoticeUnparsed
	if err := s.notices.Save(ctx, notice); err != nil {
		s.logger.Error("flag unparsed notice failed", "notice_id", payload.NoticeID, "error", err)
		return
	}
	s.logger.Warn("notice flagged for manual handling", "notice_id", payload.NoticeID)
}
