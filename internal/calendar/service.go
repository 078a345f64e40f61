// Package calendar tracks dated obligations (tax filings, invoice follow-ups,
// CNSS payments) and lists them by month or by how soon they fall due.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/id"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
)

const (
	maxTitle       = 100
	maxDescription = 255

	// UpcomingDays is the default look-ahead of Upcoming.
	UpcomingDays = 30
)

// Repository persists deadlines.
type Repository interface {
	CreateDeadline(ctx context.Context, d model.Deadline) error
	GetDeadline(ctx context.Context, deadlineID string) (model.Deadline, error)
	ListDeadlines(ctx context.Context, from, to time.Time) ([]model.Deadline, error)
	UpdateDeadline(ctx context.Context, d model.Deadline) error
	DeleteDeadline(ctx context.Context, deadlineID string) error
}

// Service manages deadlines.
type Service struct {
	repo Repository
	log  *zap.Logger

	// Now dates completions and anchors Upcoming when no day is given.
	Now func() time.Time
}

// NewService creates a deadline Service.
func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log,
		Now:  func() time.Time { return time.Now().UTC() },
	}
}

// Params are the editable fields of a deadline.
type Params struct {
	Title       string
	Description string
	DueDate     time.Time
	Type        model.DeadlineType
}

func (p *Params) validate() error {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	var errs []error
	switch n := utf8.RuneCountInString(p.Title); {
	case n == 0:
		errs = append(errs, errors.New("title is required"))
	case n > maxTitle:
		errs = append(errs, fmt.Errorf("title is longer than %d characters", maxTitle))
	}
	if utf8.RuneCountInString(p.Description) > maxDescription {
		errs = append(errs, fmt.Errorf("description is longer than %d characters", maxDescription))
	}
	if p.DueDate.IsZero() {
		errs = append(errs, errors.New("due date is required"))
	}
	if !p.Type.Valid() {
		errs = append(errs, fmt.Errorf("unknown deadline type %q", p.Type))
	}
	if len(errs) > 0 {
		return apperr.Error{Code: apperr.CodeValidation, Message: "invalid deadline", Err: errors.Join(errs...)}
	}
	return nil
}

// Create stores a new open deadline.
func (s *Service) Create(ctx context.Context, params Params) (model.Deadline, error) {
	if err := params.validate(); err != nil {
		return model.Deadline{}, err
	}
	d := model.Deadline{
		ID:          id.New(),
		Title:       params.Title,
		Description: params.Description,
		DueDate:     period.Day(params.DueDate),
		Type:        params.Type,
	}
	if err := s.repo.CreateDeadline(ctx, d); err != nil {
		return model.Deadline{}, fmt.Errorf("storing deadline %q: %w", d.Title, err)
	}
	s.log.Info("deadline created",
		zap.String("id", d.ID),
		zap.String("type", string(d.Type)),
		zap.String("due", period.Format(d.DueDate)))
	return s.repo.GetDeadline(ctx, d.ID)
}

// Get returns one deadline.
func (s *Service) Get(ctx context.Context, deadlineID string) (model.Deadline, error) {
	return s.repo.GetDeadline(ctx, deadlineID)
}

// Update replaces the title, description, due date and type of a deadline.
// Completion is left as it is.
func (s *Service) Update(ctx context.Context, deadlineID string, params Params) (model.Deadline, error) {
	d, err := s.repo.GetDeadline(ctx, deadlineID)
	if err != nil {
		return model.Deadline{}, err
	}
	if err := params.validate(); err != nil {
		return model.Deadline{}, err
	}
	d.Title = params.Title
	d.Description = params.Description
	d.DueDate = period.Day(params.DueDate)
	d.Type = params.Type
	if err := s.repo.UpdateDeadline(ctx, d); err != nil {
		return model.Deadline{}, fmt.Errorf("updating deadline %s: %w", deadlineID, err)
	}
	s.log.Info("deadline updated", zap.String("id", deadlineID), zap.String("due", period.Format(d.DueDate)))
	return d, nil
}

// Complete marks a deadline done today. A deadline is completed once.
func (s *Service) Complete(ctx context.Context, deadlineID string) (model.Deadline, error) {
	d, err := s.repo.GetDeadline(ctx, deadlineID)
	if err != nil {
		return model.Deadline{}, err
	}
	if d.Completed {
		return model.Deadline{}, apperr.Conflict("deadline %q was already completed on %s", d.Title, period.Format(d.CompletedDate))
	}
	d.Completed = true
	d.CompletedDate = period.Day(s.Now())
	if err := s.repo.UpdateDeadline(ctx, d); err != nil {
		return model.Deadline{}, fmt.Errorf("updating deadline %s: %w", deadlineID, err)
	}
	s.log.Info("deadline completed", zap.String("id", deadlineID), zap.String("title", d.Title))
	return d, nil
}

// Delete removes a deadline.
func (s *Service) Delete(ctx context.Context, deadlineID string) error {
	d, err := s.repo.GetDeadline(ctx, deadlineID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteDeadline(ctx, deadlineID); err != nil {
		return fmt.Errorf("deleting deadline %s: %w", deadlineID, err)
	}
	s.log.Info("deadline deleted", zap.String("id", deadlineID), zap.String("title", d.Title))
	return nil
}

// List returns every deadline ordered by due date.
func (s *Service) List(ctx context.Context) ([]model.Deadline, error) {
	out, err := s.repo.ListDeadlines(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("listing deadlines: %w", err)
	}
	return out, nil
}

// Day holds the deadlines due on one day of a month.
type Day struct {
	Day       int              `json:"day"`
	Deadlines []model.Deadline `json:"deadlines"`
}

// Month is a calendar page. Days lists only days with something due, in order.
type Month struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Days  []Day `json:"days"`
}

// Month groups the deadlines of a calendar month by day, completed ones included.
func (s *Service) Month(ctx context.Context, year, month int) (Month, error) {
	w, err := period.Month(year, month)
	if err != nil {
		return Month{}, err
	}
	deadlines, err := s.repo.ListDeadlines(ctx, w.Start, w.End)
	if err != nil {
		return Month{}, fmt.Errorf("listing deadlines for %s: %w", w, err)
	}
	page := Month{Year: year, Month: month, Days: []Day{}}
	for _, d := range deadlines {
		n := len(page.Days)
		if n == 0 || page.Days[n-1].Day != d.DueDate.Day() {
			page.Days = append(page.Days, Day{Day: d.DueDate.Day()})
			n++
		}
		page.Days[n-1].Deadlines = append(page.Days[n-1].Deadlines, d)
	}
	return page, nil
}

// Upcoming is an open deadline with the days remaining until it falls due.
type Upcoming struct {
	model.Deadline
	DaysLeft int `json:"days_left"`
}

// Upcoming returns open deadlines due from today through today+days, soonest
// first. A non-positive days means UpcomingDays.
func (s *Service) Upcoming(ctx context.Context, today time.Time, days int) ([]Upcoming, error) {
	if days <= 0 {
		days = UpcomingDays
	}
	today = period.Day(today)
	deadlines, err := s.repo.ListDeadlines(ctx, today, today.AddDate(0, 0, days))
	if err != nil {
		return nil, fmt.Errorf("listing upcoming deadlines: %w", err)
	}
	out := []Upcoming{}
	for _, d := range deadlines {
		if d.Completed {
			continue
		}
		out = append(out, Upcoming{Deadline: d, DaysLeft: int(d.DueDate.Sub(today).Hours() / 24)})
	}
	return out, nil
}
