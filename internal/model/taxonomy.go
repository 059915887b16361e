package model

import "time"

// Taxonomy names one of the lookup tables that classify content.
type Taxonomy string

const (
    TaxonomyArticleType Taxonomy = "article_types"
    TaxonomyGenre       Taxonomy = "genres"
    TaxonomyRegion      Taxonomy = "regions"
    TaxonomyRecipeType  Taxonomy = "recipe_types"
)

// Taxon is a row of a taxonomy table.  UsageCount is the number of
// content items referencing it and is only filled by read queries.
type Taxon struct {
    ID         string
    Name       string
    CreatedOn  time.Time
    ModifiedOn time.Time
    UsageCount int64
}
