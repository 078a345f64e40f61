package tax

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/id"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/period"
)

// DeclarationRepository persists tax declarations.
type DeclarationRepository interface {
	CreateDeclaration(ctx context.Context, d model.TaxDeclaration) error
	GetDeclaration(ctx context.Context, declID string) (model.TaxDeclaration, error)
	ListDeclarations(ctx context.Context) ([]model.TaxDeclaration, error)
	UpdateDeclaration(ctx context.Context, d model.TaxDeclaration) error
	DeleteDeclaration(ctx context.Context, declID string) error
}

// DeadlineOffsets are the days after a period's end a declaration falls due.
type DeadlineOffsets struct {
	TVA int
	IS  int
	IR  int
}

func (o DeadlineOffsets) forType(t model.DeclarationType) int {
	switch t {
	case model.DeclarationIS:
		return o.IS
	case model.DeclarationIR:
		return o.IR
	default:
		return o.TVA
	}
}

// DeclarationService records declarations. The amount is computed once at
// creation and never recomputed.
type DeclarationService struct {
	repo    DeclarationRepository
	calc    *Calculator
	offsets DeadlineOffsets
	log     *zap.Logger

	// Now stamps submission dates.
	Now func() time.Time
}

// NewDeclarationService creates a DeclarationService.
func NewDeclarationService(repo DeclarationRepository, calc *Calculator, offsets DeadlineOffsets, log *zap.Logger) *DeclarationService {
	return &DeclarationService{
		repo:    repo,
		calc:    calc,
		offsets: offsets,
		log:     log,
		Now:     func() time.Time { return time.Now().UTC() },
	}
}

// DeclarationParams describes a new declaration. StartDate opens a calendar
// month, quarter or year matching Period; EndDate, when set, must close it.
// A zero Deadline is derived from the end date and the offsets.
type DeclarationParams struct {
	Type      model.DeclarationType
	Period    model.DeclarationPeriod
	StartDate time.Time
	EndDate   time.Time
	Deadline  time.Time
}

// Create computes the declaration amount and stores it.
func (s *DeclarationService) Create(ctx context.Context, params DeclarationParams) (model.TaxDeclaration, error) {
	if !params.Type.Valid() {
		return model.TaxDeclaration{}, apperr.Validation("unknown declaration type %q", params.Type)
	}
	if !params.Period.Valid() {
		return model.TaxDeclaration{}, apperr.Validation("unknown declaration period %q", params.Period)
	}
	if params.StartDate.IsZero() {
		return model.TaxDeclaration{}, apperr.InvalidPeriod("declaration needs a start date")
	}
	start := period.Day(params.StartDate)
	if err := checkStart(start, params.Period); err != nil {
		return model.TaxDeclaration{}, err
	}

	end := defaultEnd(start, params.Period)
	if !params.EndDate.IsZero() && !period.Day(params.EndDate).Equal(end) {
		return model.TaxDeclaration{}, apperr.InvalidPeriod("%s declaration from %s must end on %s, not %s",
			params.Period, period.Format(start), period.Format(end), period.Format(params.EndDate))
	}
	w, err := period.Between(start, end)
	if err != nil {
		return model.TaxDeclaration{}, err
	}

	deadline := params.Deadline
	if deadline.IsZero() {
		deadline = w.End.AddDate(0, 0, s.offsets.forType(params.Type))
	}

	amount, err := s.amount(ctx, params.Type, params.Period, w)
	if err != nil {
		return model.TaxDeclaration{}, fmt.Errorf("computing %s amount: %w", params.Type, err)
	}

	decl := model.TaxDeclaration{
		ID:          id.NewDeclarationID(),
		Type:        params.Type,
		Period:      params.Period,
		StartDate:   w.Start,
		EndDate:     w.End,
		Deadline:    period.Day(deadline),
		TotalAmount: amount,
	}
	if err := s.repo.CreateDeclaration(ctx, decl); err != nil {
		return model.TaxDeclaration{}, fmt.Errorf("storing declaration: %w", err)
	}
	s.log.Info("declaration created",
		zap.String("id", decl.ID),
		zap.String("type", string(decl.Type)),
		zap.Stringer("window", w),
		zap.String("amount", amount.StringFixed(2)))
	return decl, nil
}

// checkStart requires the first day of a month, of a quarter or of a year.
func checkStart(start time.Time, p model.DeclarationPeriod) error {
	m := start.Month()
	switch {
	case start.Day() != 1:
	case p == model.PeriodMonthly:
		return nil
	case p == model.PeriodQuarterly && (m-1)%3 == 0:
		return nil
	case p == model.PeriodAnnual && m == time.January:
		return nil
	}
	return apperr.InvalidPeriod("%s is not the first day of a %s period", period.Format(start), p)
}

func defaultEnd(start time.Time, p model.DeclarationPeriod) time.Time {
	switch p {
	case model.PeriodMonthly:
		return start.AddDate(0, 1, -1)
	case model.PeriodQuarterly:
		return start.AddDate(0, 3, -1)
	default:
		return start.AddDate(1, 0, -1)
	}
}

// amount reads the calculator for the declaration's period. Annual TVA covers
// Jan 1 through Dec 31 of the start year; quarterly IR sums three months.
func (s *DeclarationService) amount(ctx context.Context, t model.DeclarationType, p model.DeclarationPeriod, w period.Window) (decimal.Decimal, error) {
	year, month := w.Start.Year(), int(w.Start.Month())

	switch t {
	case model.DeclarationTVA:
		req := VATRequest{Year: year}
		switch p {
		case model.PeriodMonthly:
			req.Month = month
		case model.PeriodQuarterly:
			req.Quarter = period.QuarterOf(w.Start)
		default:
			req.Month = 1
			req.EndDate = period.Date(year, time.December, 31)
		}
		rep, err := s.calc.VAT(ctx, req)
		if err != nil {
			return decimal.Zero, err
		}
		return rep.Due, nil

	case model.DeclarationIS:
		rep, err := s.calc.IS(ctx, year)
		if err != nil {
			return decimal.Zero, err
		}
		return rep.Total, nil

	default:
		switch p {
		case model.PeriodMonthly:
			rep, err := s.calc.IR(ctx, year, month)
			if err != nil {
				return decimal.Zero, err
			}
			return rep.Total, nil
		case model.PeriodQuarterly:
			total := decimal.Zero
			for m := month; m < month+3 && m <= 12; m++ {
				rep, err := s.calc.IR(ctx, year, m)
				if err != nil {
					return decimal.Zero, err
				}
				total = total.Add(rep.Total)
			}
			return total, nil
		default:
			rep, err := s.calc.IR(ctx, year, 0)
			if err != nil {
				return decimal.Zero, err
			}
			return rep.Total, nil
		}
	}
}

// Get returns a declaration by id.
func (s *DeclarationService) Get(ctx context.Context, declID string) (model.TaxDeclaration, error) {
	return s.repo.GetDeclaration(ctx, declID)
}

// List returns declarations ordered by deadline, latest first.
func (s *DeclarationService) List(ctx context.Context) ([]model.TaxDeclaration, error) {
	decls, err := s.repo.ListDeclarations(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing declarations: %w", err)
	}
	return decls, nil
}

// Submit marks a declaration submitted. A declaration is submitted once.
func (s *DeclarationService) Submit(ctx context.Context, declID string) (model.TaxDeclaration, error) {
	decl, err := s.repo.GetDeclaration(ctx, declID)
	if err != nil {
		return model.TaxDeclaration{}, err
	}
	if decl.Submitted {
		return model.TaxDeclaration{}, apperr.Conflict("declaration %s was already submitted on %s", declID, period.Format(decl.SubmittedOn))
	}
	decl.Submitted = true
	decl.SubmittedOn = period.Day(s.Now())
	if err := s.repo.UpdateDeclaration(ctx, decl); err != nil {
		return model.TaxDeclaration{}, fmt.Errorf("updating declaration %s: %w", declID, err)
	}
	s.log.Info("declaration submitted", zap.String("id", declID), zap.String("type", string(decl.Type)))
	return decl, nil
}

// Delete removes a declaration that has not been submitted.
func (s *DeclarationService) Delete(ctx context.Context, declID string) error {
	decl, err := s.repo.GetDeclaration(ctx, declID)
	if err != nil {
		return err
	}
	if decl.Submitted {
		return apperr.Conflict("declaration %s is submitted and cannot be deleted", declID)
	}
	if err := s.repo.DeleteDeclaration(ctx, declID); err != nil {
		return fmt.Errorf("deleting declaration %s: %w", declID, err)
	}
	s.log.Info("declaration deleted", zap.String("id", declID))
	return nil
}
