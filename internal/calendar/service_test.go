package calendar

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/model"
	"github.com/daftar-dev/daftar/internal/store/memory"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func newService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(memory.New(), zap.NewNop())
	svc.Now = func() time.Time { return time.Date(2024, 4, 18, 9, 30, 0, 0, time.UTC) }
	return svc
}

func add(t *testing.T, svc *Service, title string, due time.Time, typ model.DeadlineType) model.Deadline {
	t.Helper()
	d, err := svc.Create(context.Background(), Params{Title: title, DueDate: due, Type: typ})
	require.NoError(t, err)
	return d
}

func TestCreate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, Params{
		Title:       "  Déclaration TVA mars ",
		Description: "Régime mensuel",
		DueDate:     time.Date(2024, 4, 20, 17, 0, 0, 0, time.UTC),
		Type:        model.DeadlineTax,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "Déclaration TVA mars", d.Title)
	assert.Equal(t, date(2024, 4, 20), d.DueDate)
	assert.False(t, d.Completed)
	assert.True(t, d.CompletedDate.IsZero())
	assert.False(t, d.CreatedAt.IsZero())
}

func TestCreateRejects(t *testing.T) {
	svc := newService(t)
	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{"no title", Params{Title: " ", DueDate: date(2024, 1, 1), Type: model.DeadlineTax}, "title is required"},
		{"long title", Params{Title: strings.Repeat("é", 101), DueDate: date(2024, 1, 1), Type: model.DeadlineTax}, "title is longer"},
		{"long description", Params{Title: "CNSS", Description: strings.Repeat("x", 256), DueDate: date(2024, 1, 1), Type: model.DeadlineCNSS}, "description is longer"},
		{"no due date", Params{Title: "CNSS", Type: model.DeadlineCNSS}, "due date is required"},
		{"unknown type", Params{Title: "CNSS", DueDate: date(2024, 1, 1), Type: "Payroll"}, "unknown deadline type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.params)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrValidation))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := svc.Create(context.Background(), Params{Title: strings.Repeat("é", 100), DueDate: date(2024, 1, 1), Type: model.DeadlineOther})
	assert.NoError(t, err, "limits count characters")
}

func TestUpdateCompleteDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	d := add(t, svc, "CNSS avril", date(2024, 5, 10), model.DeadlineCNSS)

	updated, err := svc.Update(ctx, d.ID, Params{Title: "CNSS avril 2024", DueDate: date(2024, 5, 12), Type: model.DeadlineCNSS})
	require.NoError(t, err)
	assert.Equal(t, "CNSS avril 2024", updated.Title)
	assert.Equal(t, date(2024, 5, 12), updated.DueDate)

	_, err = svc.Update(ctx, d.ID, Params{Title: "CNSS", DueDate: date(2024, 5, 12), Type: "Payroll"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = svc.Update(ctx, "missing", Params{Title: "CNSS", DueDate: date(2024, 5, 12), Type: model.DeadlineCNSS})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	done, err := svc.Complete(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	assert.Equal(t, date(2024, 4, 18), done.CompletedDate)

	_, err = svc.Complete(ctx, d.ID)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	edited, err := svc.Update(ctx, d.ID, Params{Title: "CNSS avril", DueDate: date(2024, 5, 10), Type: model.DeadlineCNSS})
	require.NoError(t, err)
	assert.True(t, edited.Completed, "edit keeps completion")

	require.NoError(t, svc.Delete(ctx, d.ID))
	assert.True(t, errors.Is(svc.Delete(ctx, d.ID), apperr.ErrNotFound))
	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMonth(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	add(t, svc, "IR mars", date(2024, 4, 30), model.DeadlineTax)
	add(t, svc, "TVA mars", date(2024, 4, 20), model.DeadlineTax)
	add(t, svc, "Relance F-2024-003", date(2024, 4, 20), model.DeadlineInvoice)
	add(t, svc, "CNSS mars", date(2024, 4, 10), model.DeadlineCNSS)
	add(t, svc, "IS acompte", date(2024, 3, 31), model.DeadlineTax)
	add(t, svc, "TVA avril", date(2024, 5, 1), model.DeadlineTax)
	done := add(t, svc, "Assurance", date(2024, 4, 2), model.DeadlineOther)
	_, err := svc.Complete(ctx, done.ID)
	require.NoError(t, err)

	page, err := svc.Month(ctx, 2024, 4)
	require.NoError(t, err)
	assert.Equal(t, 2024, page.Year)
	assert.Equal(t, 4, page.Month)
	require.Len(t, page.Days, 4)
	assert.Equal(t, 2, page.Days[0].Day)
	assert.Equal(t, 10, page.Days[1].Day)
	assert.Equal(t, 20, page.Days[2].Day)
	assert.Len(t, page.Days[2].Deadlines, 2)
	assert.Equal(t, 30, page.Days[3].Day)

	empty, err := svc.Month(ctx, 2024, 7)
	require.NoError(t, err)
	assert.Empty(t, empty.Days)

	_, err = svc.Month(ctx, 2024, 13)
	assert.True(t, errors.Is(err, apperr.ErrInvalidPeriod))
}

func TestUpcoming(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	add(t, svc, "Passée", date(2024, 4, 17), model.DeadlineTax)
	today := add(t, svc, "Aujourd'hui", date(2024, 4, 18), model.DeadlineCNSS)
	last := add(t, svc, "Dernier jour", date(2024, 5, 18), model.DeadlineTax)
	add(t, svc, "Trop loin", date(2024, 5, 19), model.DeadlineTax)
	soon := add(t, svc, "Bientôt", date(2024, 4, 20), model.DeadlineInvoice)
	closed := add(t, svc, "Faite", date(2024, 4, 25), model.DeadlineOther)
	_, err := svc.Complete(ctx, closed.ID)
	require.NoError(t, err)

	up, err := svc.Upcoming(ctx, svc.Now(), 0)
	require.NoError(t, err)
	require.Len(t, up, 3)
	assert.Equal(t, today.ID, up[0].ID)
	assert.Equal(t, 0, up[0].DaysLeft)
	assert.Equal(t, soon.ID, up[1].ID)
	assert.Equal(t, 2, up[1].DaysLeft)
	assert.Equal(t, last.ID, up[2].ID)
	assert.Equal(t, 30, up[2].DaysLeft)

	week, err := svc.Upcoming(ctx, date(2024, 4, 18), 7)
	require.NoError(t, err)
	assert.Len(t, week, 2)
}
