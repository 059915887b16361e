package model

import (
    "strings"
    "time"
)

// Kind tags which payload a content row carries.
type Kind string

const (
    KindArticle Kind = "article"
    KindBook    Kind = "book"
    KindRecipe  Kind = "recipe"
)

// Status is the publication state of a content item.
type Status string

const (
    StatusDraft     Status = "Draft"
    StatusPublished Status = "Published"
    StatusArchived  Status = "Archived"
)

// ParseStatus accepts status names case-insensitively.
func ParseStatus(s string) (Status, bool) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "draft":
        return StatusDraft, true
    case "published":
        return StatusPublished, true
    case "archived":
        return StatusArchived, true
    }
    return "", false
}

// Content is the metadata block shared by articles, books and recipes.
// It maps onto the `contents` table; kind-specific columns live in
// their own tables keyed by content_id.
type Content struct {
    ID         string    // contents.id
    Kind       Kind      // contents.kind
    Title      string    // contents.title
    Slug       string    // contents.slug (unique across kinds)
    Excerpt    string    // contents.excerpt
    Status     Status    // contents.status
    UserID     string    // contents.user_id (author)
    CreatedOn  time.Time // contents.created_on
    ModifiedOn time.Time // contents.modified_on

    // Read-side fields filled by list/get queries.
    AuthorUsername string
    AuthorAvatarID *string
    LikesCount     int64
    CommentsCount  int64
    ViewsCount     int64
}

// Published reports whether the item is publicly visible.
func (c *Content) Published() bool { return c.Status == StatusPublished }

// Article is an article row joined with its content metadata.
type Article struct {
    Content
    Body               string
    ReadingTimeMinutes int
    ArticleTypeID      string
    ArticleTypeName    string
}

// Book is a book row joined with its content metadata.
type Book struct {
    Content
    AuthorName    string // book author, not the uploading user
    Description   string
    PageAmount    int
    YearOfPublish int
    BookFileID    *string
    FileSizeBytes int64
    CoverFileID   *string
    Genres        []Taxon
}

// Difficulty grades a recipe.  Stored as its ordinal so sorting by
// difficulty is a plain ORDER BY.
type Difficulty int

const (
    DifficultyEasy Difficulty = iota
    DifficultyMedium
    DifficultyHard
)

var difficultyNames = [...]string{"Easy", "Medium", "Hard"}

func (d Difficulty) String() string {
    if d < DifficultyEasy || d > DifficultyHard {
        return "Unknown"
    }
    return difficultyNames[d]
}

// ParseDifficulty accepts the names above case-insensitively.
func ParseDifficulty(s string) (Difficulty, bool) {
    for i, n := range difficultyNames {
        if strings.EqualFold(strings.TrimSpace(s), n) {
            return Difficulty(i), true
        }
    }
    return 0, false
}

// Recipe is a recipe row joined with its content metadata.
type Recipe struct {
    Content
    Difficulty      Difficulty
    Ingredients     string
    Instructions    string
    CookTimeMinutes int
    ImageID         *string
    RecipeTypes     []Taxon
    Regions         []Taxon
}
