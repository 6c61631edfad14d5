package company

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
	"github.com/adonai404/empresas-imperial-sub001/internal/repository"
)

func newSQLiteService(t *testing.T) (*Service, repository.CompanyRepository) {
	t.Helper()
	ctx := context.Background()
	drv, err := repository.OpenSQLite(ctx, "", nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = drv.Close() })
	if err := repository.ApplySchema(ctx, drv, drv.Dialect()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	repo := repository.NewCompanyRepository(drv, nil)
	return NewService(repo, nil), repo
}

func TestResolveCompany_CreatesThenReuses(t *testing.T) {
	ctx := context.Background()
	svc, repo := newSQLiteService(t)

	first, err := svc.ResolveCompany(ctx, "12345678000190", "Alfa LTDA")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := svc.ResolveCompany(ctx, "12345678000190", "Alfa Comercio e Servicos LTDA")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if first != second {
		t.Errorf("ids differ: %s vs %s", first, second)
	}

	// WHAT: The name from the first document sticks.
	// WHY: Later documents may spell the legal name differently.
	c, err := repo.GetByCNPJ(ctx, "12345678000190")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.Name != "Alfa LTDA" {
		t.Errorf("name = %q", c.Name)
	}
}

func TestResolveCompany_EmptyNameFallsBackToCNPJ(t *testing.T) {
	ctx := context.Background()
	svc, repo := newSQLiteService(t)
	if _, err := svc.ResolveCompany(ctx, "12345678000190", "  "); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	c, _ := repo.GetByCNPJ(ctx, "12345678000190")
	if c.Name != "12.345.678/0001-90" {
		t.Errorf("name = %q", c.Name)
	}
}

type fakeCompanyRepo struct {
	repository.CompanyRepository
	lookups   int
	getErr    error
	insertErr error
	conflict  bool
	winner    uuid.UUID
}

func (f *fakeCompanyRepo) GetByCNPJ(_ context.Context, cnpj string) (*entity.Company, error) {
	f.lookups++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.conflict && f.lookups > 1 {
		return &entity.Company{ID: f.winner, CNPJ: cnpj}, nil
	}
	return nil, common.ErrNotFound
}

func (f *fakeCompanyRepo) Insert(context.Context, string, string) (uuid.UUID, bool, error) {
	if f.insertErr != nil {
		return uuid.Nil, false, f.insertErr
	}
	if f.conflict {
		return uuid.Nil, false, nil
	}
	return uuid.New(), true, nil
}

func TestResolveCompany_ConflictReselects(t *testing.T) {
	repo := &fakeCompanyRepo{conflict: true, winner: uuid.New()}
	id, err := NewService(repo, nil).ResolveCompany(context.Background(), "12345678000190", "Alfa")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if id != repo.winner {
		t.Errorf("id = %s, want the concurrent winner %s", id, repo.winner)
	}
	if repo.lookups != 2 {
		t.Errorf("lookups = %d, want 2", repo.lookups)
	}
}

func TestResolveCompany_StorageErrors(t *testing.T) {
	boom := errors.New("connection reset")
	for name, repo := range map[string]*fakeCompanyRepo{
		"lookup": {getErr: boom},
		"insert": {insertErr: boom},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewService(repo, nil).ResolveCompany(context.Background(), "12345678000190", "Alfa")
			if !errors.Is(err, common.ErrStorage) || !errors.Is(err, boom) {
				t.Fatalf("error = %v, want StorageError wrapping cause", err)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName("12345678000190"); got != "12.345.678/0001-90" {
		t.Errorf("got %q", got)
	}
	if got := DisplayName("123"); got != "123" {
		t.Errorf("got %q", got)
	}
}
