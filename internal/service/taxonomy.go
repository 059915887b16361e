package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/repository"
)

// TaxonomyService manages article types, genres, regions and recipe
// types.  Writes are admin only; article types are admin only for reads
// too.
type TaxonomyService struct {
	store  *repository.Store
	logger *slog.Logger
}

func NewTaxonomyService(store *repository.Store, logger *slog.Logger) *TaxonomyService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaxonomyService{store: store, logger: logger}
}

func taxonomyEntity(t model.Taxonomy) string {
	switch t {
	case model.TaxonomyArticleType:
		return "article type"
	case model.TaxonomyGenre:
		return "genre"
	case model.TaxonomyRegion:
		return "region"
	case model.TaxonomyRecipeType:
		return "recipe type"
	}
	return string(t)
}

func (s *TaxonomyService) canRead(t model.Taxonomy, actor Actor) error {
	if t == model.TaxonomyArticleType {
		return requireAdmin(actor)
	}
	return nil
}

func validateTaxonName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 1 || n > 100 {
		return "", errValidation("name", "must be between 1 and 100 characters")
	}
	return name, nil
}

// List returns one page of t ordered by name, with usage counts.
func (s *TaxonomyService) List(ctx context.Context, t model.Taxonomy, actor Actor, p repository.Page) ([]model.Taxon, int64, error) {
	if err := s.canRead(t, actor); err != nil {
		return nil, 0, err
	}
	return s.store.Taxonomies.List(ctx, t, p.Normalize())
}

// Get returns one row of t.
func (s *TaxonomyService) Get(ctx context.Context, t model.Taxonomy, id string, actor Actor) (model.Taxon, error) {
	if err := s.canRead(t, actor); err != nil {
		return model.Taxon{}, err
	}
	x, err := s.store.Taxonomies.Get(ctx, t, id)
	if err != nil {
		return model.Taxon{}, notFoundOr(err, taxonomyEntity(t), id)
	}
	return x, nil
}

// Create adds a row to t.  Names are unique case-insensitively.
func (s *TaxonomyService) Create(ctx context.Context, t model.Taxonomy, name string, actor Actor) (model.Taxon, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Taxon{}, err
	}
	name, err := validateTaxonName(name)
	if err != nil {
		return model.Taxon{}, err
	}
	var x model.Taxon
	err = s.store.Tx(ctx, func(tx *repository.Store) error {
		if err := s.nameFree(ctx, tx, t, name, ""); err != nil {
			return err
		}
		x = model.Taxon{Name: name}
		if err := tx.Taxonomies.Create(ctx, t, &x); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errConflict("%s %q already exists", taxonomyEntity(t), name)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return model.Taxon{}, err
	}
	s.logger.Info("taxon created", "taxonomy", t, "id", x.ID, "name", x.Name)
	return x, nil
}

// Update renames a row of t.
func (s *TaxonomyService) Update(ctx context.Context, t model.Taxonomy, id, name string, actor Actor) (model.Taxon, error) {
	if err := requireAdmin(actor); err != nil {
		return model.Taxon{}, err
	}
	name, err := validateTaxonName(name)
	if err != nil {
		return model.Taxon{}, err
	}
	var x model.Taxon
	err = s.store.Tx(ctx, func(tx *repository.Store) error {
		if _, err := tx.Taxonomies.Get(ctx, t, id); err != nil {
			return notFoundOr(err, taxonomyEntity(t), id)
		}
		if err := s.nameFree(ctx, tx, t, name, id); err != nil {
			return err
		}
		if err := tx.Taxonomies.Rename(ctx, t, id, name); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errConflict("%s %q already exists", taxonomyEntity(t), name)
			}
			return notFoundOr(err, taxonomyEntity(t), id)
		}
		var err error
		x, err = tx.Taxonomies.Get(ctx, t, id)
		return err
	})
	if err != nil {
		return model.Taxon{}, err
	}
	return x, nil
}

// Delete removes a row of t.  Rows still used by content give CONFLICT.
func (s *TaxonomyService) Delete(ctx context.Context, t model.Taxonomy, id string, actor Actor) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	err := s.store.Tx(ctx, func(tx *repository.Store) error {
		x, err := tx.Taxonomies.Get(ctx, t, id)
		if err != nil {
			return notFoundOr(err, taxonomyEntity(t), id)
		}
		if x.UsageCount > 0 {
			return errConflict("%s %q is used by %d content items", taxonomyEntity(t), x.Name, x.UsageCount)
		}
		if err := tx.Taxonomies.Delete(ctx, t, id); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return errConflict("%s %q is in use", taxonomyEntity(t), x.Name)
			}
			return notFoundOr(err, taxonomyEntity(t), id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("taxon deleted", "taxonomy", t, "id", id)
	return nil
}

// nameFree fails with CONFLICT when another row of t is called name.
func (s *TaxonomyService) nameFree(ctx context.Context, tx *repository.Store, t model.Taxonomy, name, exceptID string) error {
	other, err := tx.Taxonomies.GetByName(ctx, t, name)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != exceptID:
		return errConflict("%s %q already exists", taxonomyEntity(t), name)
	}
	return nil
}
