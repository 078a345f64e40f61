package accounts

import (
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/daftar-dev/daftar/internal/apperr"
	"github.com/daftar-dev/daftar/internal/model"
)

// Chart is an in-memory snapshot of the chart of accounts, keyed by id.
// Parent links are explicit ids; children are found through an index built at construction.
type Chart struct {
	accounts []model.Account
	byID     map[int]model.Account
	byCode   map[string]model.Account
	children map[int][]int
}

// NewChart indexes accounts. The slice is copied and ordered by code.
func NewChart(accounts []model.Account) *Chart {
	sorted := make([]model.Account, len(accounts))
	copy(sorted, accounts)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	c := &Chart{
		accounts: sorted,
		byID:     make(map[int]model.Account, len(sorted)),
		byCode:   make(map[string]model.Account, len(sorted)),
		children: make(map[int][]int),
	}
	for _, a := range sorted {
		c.byID[a.ID] = a
		c.byCode[a.Code] = a
		if a.ParentID != 0 {
			c.children[a.ParentID] = append(c.children[a.ParentID], a.ID)
		}
	}
	return c
}

// All returns all accounts ordered by code.
func (c *Chart) All() []model.Account {
	return c.accounts
}

// Len returns the number of accounts.
func (c *Chart) Len() int {
	return len(c.accounts)
}

// Get returns an account by ID.
func (c *Chart) Get(id int) (model.Account, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// Exists reports whether an account ID exists.
func (c *Chart) Exists(id int) bool {
	_, ok := c.byID[id]
	return ok
}

// ByCode returns an account by its PCM code.
func (c *Chart) ByCode(code string) (model.Account, bool) {
	a, ok := c.byCode[code]
	return a, ok
}

// Children returns the direct children of an account, ordered by code.
func (c *Chart) Children(id int) []model.Account {
	ids := c.children[id]
	out := make([]model.Account, 0, len(ids))
	for _, cid := range ids {
		out = append(out, c.byID[cid])
	}
	return out
}

// Parent returns the parent of an account, if any.
func (c *Chart) Parent(id int) (model.Account, bool) {
	a, ok := c.byID[id]
	if !ok || a.ParentID == 0 {
		return model.Account{}, false
	}
	return c.Get(a.ParentID)
}

// ByType returns all accounts of the given type.
func (c *Chart) ByType(accountType model.AccountType) []model.Account {
	var result []model.Account
	for _, a := range c.accounts {
		if a.Type == accountType {
			result = append(result, a)
		}
	}
	return result
}

// ByCodePrefix returns all accounts whose code starts with prefix.
func (c *Chart) ByCodePrefix(prefix string) []model.Account {
	var result []model.Account
	for _, a := range c.accounts {
		if a.HasCodePrefix(prefix) {
			result = append(result, a)
		}
	}
	return result
}

// Suggest returns up to limit accounts whose code or name is closest to query.
func (c *Chart) Suggest(query string, limit int) []model.Account {
	if limit <= 0 || query == "" {
		return nil
	}
	q := strings.ToLower(query)

	type scored struct {
		acct model.Account
		dist int
	}
	candidates := make([]scored, 0, len(c.accounts))
	for _, a := range c.accounts {
		dist := levenshtein.ComputeDistance(q, strings.ToLower(a.Code))
		if nd := levenshtein.ComputeDistance(q, strings.ToLower(a.Name)); nd < dist {
			dist = nd
		}
		if strings.HasPrefix(a.Code, query) {
			dist = 0
		}
		candidates = append(candidates, scored{acct: a, dist: dist})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]model.Account, len(candidates))
	for i, s := range candidates {
		out[i] = s.acct
	}
	return out
}

// Resolve finds an account by code, falling back to a numeric id. A miss
// carries the closest codes under the "suggestions" detail.
func (c *Chart) Resolve(ref string) (model.Account, error) {
	if a, ok := c.ByCode(ref); ok {
		return a, nil
	}
	if n, err := strconv.Atoi(ref); err == nil {
		if a, ok := c.Get(n); ok {
			return a, nil
		}
	}
	var codes []string
	for _, a := range c.Suggest(ref, 3) {
		codes = append(codes, a.Code)
	}
	return model.Account{}, apperr.NotFound("account", ref).WithDetail("suggestions", codes)
}
