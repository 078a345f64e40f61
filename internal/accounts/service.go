package accounts

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/model"
)

// Repository persists accounts.
type Repository interface {
	ListAccounts(ctx context.Context) ([]model.Account, error)
	GetAccount(ctx context.Context, id int) (model.Account, error)
	CreateAccount(ctx context.Context, a model.Account) (model.Account, error)
	UpdateAccount(ctx context.Context, a model.Account) error
	DeleteAccount(ctx context.Context, id int) error
	AccountInUse(ctx context.Context, id int) (bool, error)
}

// Service administers the chart of accounts.
type Service struct {
	repo Repository
	log  *zap.Logger
}

// NewService creates an account Service.
func NewService(repo Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Chart loads a snapshot of the chart of accounts.
func (s *Service) Chart(ctx context.Context) (*Chart, error) {
	accts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return NewChart(accts), nil
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, id int) (model.Account, error) {
	return s.repo.GetAccount(ctx, id)
}

// Create validates and stores a new account, returning it with its assigned id.
func (s *Service) Create(ctx context.Context, a model.Account) (model.Account, error) {
	chart, err := s.Chart(ctx)
	if err != nil {
		return model.Account{}, err
	}
	if err := validateAccount(chart, a); err != nil {
		return model.Account{}, err
	}
	if _, taken := chart.ByCode(a.Code); taken {
		return model.Account{}, apperr.Conflict("account code %s already exists", a.Code)
	}

	created, err := s.repo.CreateAccount(ctx, a)
	if err != nil {
		return model.Account{}, fmt.Errorf("creating account %s: %w", a.Code, err)
	}
	s.log.Info("account created", zap.Int("id", created.ID), zap.String("code", created.Code))
	return created, nil
}

// Update replaces an account's code, name, class, type and parent.
func (s *Service) Update(ctx context.Context, a model.Account) error {
	chart, err := s.Chart(ctx)
	if err != nil {
		return err
	}
	if !chart.Exists(a.ID) {
		return apperr.NotFound("account", a.ID)
	}
	if err := validateAccount(chart, a); err != nil {
		return err
	}
	if other, taken := chart.ByCode(a.Code); taken && other.ID != a.ID {
		return apperr.Conflict("account code %s already exists", a.Code)
	}
	if createsCycle(chart, a.ID, a.ParentID) {
		return apperr.Validation("account %s cannot be its own ancestor", a.Code)
	}

	if err := s.repo.UpdateAccount(ctx, a); err != nil {
		return fmt.Errorf("updating account %d: %w", a.ID, err)
	}
	s.log.Info("account updated", zap.Int("id", a.ID), zap.String("code", a.Code))
	return nil
}

// Delete removes an account. Accounts with children or journal lines are kept.
func (s *Service) Delete(ctx context.Context, id int) error {
	chart, err := s.Chart(ctx)
	if err != nil {
		return err
	}
	acct, ok := chart.Get(id)
	if !ok {
		return apperr.NotFound("account", id)
	}
	if len(chart.Children(id)) > 0 {
		return apperr.Conflict("account %s has sub-accounts", acct.Code)
	}
	used, err := s.repo.AccountInUse(ctx, id)
	if err != nil {
		return fmt.Errorf("checking account usage: %w", err)
	}
	if used {
		return apperr.Conflict("account %s is used by journal lines", acct.Code)
	}

	if err := s.repo.DeleteAccount(ctx, id); err != nil {
		return fmt.Errorf("deleting account %d: %w", id, err)
	}
	s.log.Info("account deleted", zap.Int("id", id), zap.String("code", acct.Code))
	return nil
}

// Import creates the accounts of defs whose code is not already in the chart.
// Parents are resolved by code and created before their children. It returns
// the number of accounts created.
func (s *Service) Import(ctx context.Context, defs []Definition) (int, error) {
	ordered := make([]Definition, len(defs))
	copy(ordered, defs)
	sort.SliceStable(ordered, func(i, j int) bool { return len(ordered[i].Code) < len(ordered[j].Code) })

	chart, err := s.Chart(ctx)
	if err != nil {
		return 0, err
	}
	codes := make(map[string]int, chart.Len()+len(defs))
	for _, a := range chart.All() {
		codes[a.Code] = a.ID
	}

	created := 0
	for _, def := range ordered {
		if _, exists := codes[def.Code]; exists {
			continue
		}
		var parentID int
		if def.ParentCode != "" {
			pid, ok := codes[def.ParentCode]
			if !ok {
				return created, apperr.Validation("account %s: unknown parent code %s", def.Code, def.ParentCode)
			}
			parentID = pid
		}
		acct, err := s.Create(ctx, model.Account{
			Code:     def.Code,
			Name:     def.Name,
			Class:    def.Class,
			Type:     def.Type,
			ParentID: parentID,
		})
		if err != nil {
			return created, fmt.Errorf("importing account %s: %w", def.Code, err)
		}
		codes[acct.Code] = acct.ID
		created++
	}
	return created, nil
}

// Export returns the chart as code-based definitions ordered by code.
func (s *Service) Export(ctx context.Context) ([]Definition, error) {
	chart, err := s.Chart(ctx)
	if err != nil {
		return nil, err
	}
	defs := make([]Definition, 0, chart.Len())
	for _, a := range chart.All() {
		def := Definition{Code: a.Code, Name: a.Name, Class: a.Class, Type: a.Type}
		if parent, ok := chart.Parent(a.ID); ok {
			def.ParentCode = parent.Code
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Seed imports the default chart into an empty store.
func (s *Service) Seed(ctx context.Context) (int, error) {
	accts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing accounts: %w", err)
	}
	if len(accts) > 0 {
		return 0, nil
	}
	return s.Import(ctx, DefaultChart())
}

// Resolve finds an account by code, falling back to a numeric id.
func (s *Service) Resolve(ctx context.Context, ref string) (model.Account, error) {
	chart, err := s.Chart(ctx)
	if err != nil {
		return model.Account{}, err
	}
	return chart.Resolve(ref)
}

func validateAccount(chart *Chart, a model.Account) error {
	var errs []error
	if a.Code == "" {
		errs = append(errs, errors.New("code is required"))
	}
	if a.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if a.Class < model.MinClass || a.Class > model.MaxClass {
		errs = append(errs, fmt.Errorf("class %d outside %d-%d", a.Class, model.MinClass, model.MaxClass))
	}
	if !a.Type.Valid() {
		errs = append(errs, fmt.Errorf("unknown account type %q", a.Type))
	}
	if a.ParentID != 0 && !chart.Exists(a.ParentID) {
		errs = append(errs, fmt.Errorf("parent account %d does not exist", a.ParentID))
	}
	if len(errs) == 0 {
		return nil
	}
	return apperr.Error{
		Code:    apperr.CodeValidation,
		Message: fmt.Sprintf("invalid account %q", a.Code),
		Err:     errors.Join(errs...),
	}
}

func createsCycle(chart *Chart, id, parentID int) bool {
	for p := parentID; p != 0; {
		if p == id {
			return true
		}
		parent, ok := chart.Get(p)
		if !ok {
			return false
		}
		p = parent.ParentID
	}
	return false
}
