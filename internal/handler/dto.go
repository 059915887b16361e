package handler

import (
	"time"

	"github.com/iliyamo/contenthub/internal/model"
)

// ----- response DTOs -----

type userDTO struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	AvatarURL  *string   `json:"avatar_url"`
	CreatedOn  time.Time `json:"created_on"`
	ModifiedOn time.Time `json:"modified_on"`
}

func toUser(u model.User) userDTO {
	d := userDTO{
		ID: u.ID, Username: u.Username, Email: u.Email, Role: string(u.Role),
		CreatedOn: u.CreatedOn, ModifiedOn: u.ModifiedOn,
	}
	if u.AvatarID != nil {
		url := "/api/users/" + u.ID + "/avatar"
		d.AvatarURL = &url
	}
	return d
}

type authorDTO struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
}

func author(id, username string, avatarID *string) authorDTO {
	a := authorDTO{ID: id, Username: username}
	if avatarID != nil {
		url := "/api/users/" + id + "/avatar"
		a.AvatarURL = &url
	}
	return a
}

type contentDTO struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Excerpt       string    `json:"excerpt"`
	Status        string    `json:"status"`
	Author        authorDTO `json:"author"`
	LikesCount    int64     `json:"likes_count"`
	CommentsCount int64     `json:"comments_count"`
	ViewsCount    int64     `json:"views_count"`
	CreatedOn     time.Time `json:"created_on"`
	ModifiedOn    time.Time `json:"modified_on"`
}

func toContent(c model.Content) contentDTO {
	return contentDTO{
		ID: c.ID, Kind: string(c.Kind), Title: c.Title, Slug: c.Slug, Excerpt: c.Excerpt,
		Status:        string(c.Status),
		Author:        author(c.UserID, c.AuthorUsername, c.AuthorAvatarID),
		LikesCount:    c.LikesCount,
		CommentsCount: c.CommentsCount,
		ViewsCount:    c.ViewsCount,
		CreatedOn:     c.CreatedOn,
		ModifiedOn:    c.ModifiedOn,
	}
}

type taxonRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func taxonRefs(ts []model.Taxon) []taxonRef {
	out := make([]taxonRef, 0, len(ts))
	for _, t := range ts {
		out = append(out, taxonRef{ID: t.ID, Name: t.Name})
	}
	return out
}

func fileURL(kind string, id *string) *string {
	if id == nil {
		return nil
	}
	url := "/api/files/" + kind + "/" + *id
	return &url
}

type articleDTO struct {
	contentDTO
	Body               string   `json:"body"`
	ReadingTimeMinutes int      `json:"reading_time_minutes"`
	ArticleType        taxonRef `json:"article_type"`
}

func toArticle(a model.Article) articleDTO {
	return articleDTO{
		contentDTO:         toContent(a.Content),
		Body:               a.Body,
		ReadingTimeMinutes: a.ReadingTimeMinutes,
		ArticleType:        taxonRef{ID: a.ArticleTypeID, Name: a.ArticleTypeName},
	}
}

type bookDTO struct {
	contentDTO
	AuthorName    string     `json:"author_name"`
	Description   string     `json:"description"`
	PageAmount    int        `json:"page_amount"`
	YearOfPublish int        `json:"year_of_publish"`
	HasFile       bool       `json:"has_file"`
	FileSizeBytes int64      `json:"file_size_bytes"`
	CoverURL      *string    `json:"cover_url"`
	Genres        []taxonRef `json:"genres"`
}

func toBook(b model.Book) bookDTO {
	return bookDTO{
		contentDTO:    toContent(b.Content),
		AuthorName:    b.AuthorName,
		Description:   b.Description,
		PageAmount:    b.PageAmount,
		YearOfPublish: b.YearOfPublish,
		HasFile:       b.BookFileID != nil,
		FileSizeBytes: b.FileSizeBytes,
		CoverURL:      fileURL("images", b.CoverFileID),
		Genres:        taxonRefs(b.Genres),
	}
}

type recipeDTO struct {
	contentDTO
	Difficulty      string     `json:"difficulty"`
	Ingredients     string     `json:"ingredients"`
	Instructions    string     `json:"instructions"`
	CookTimeMinutes int        `json:"cook_time_minutes"`
	ImageURL        *string    `json:"image_url"`
	RecipeTypes     []taxonRef `json:"recipe_types"`
	Regions         []taxonRef `json:"regions"`
}

func toRecipe(r model.Recipe) recipeDTO {
	return recipeDTO{
		contentDTO:      toContent(r.Content),
		Difficulty:      r.Difficulty.String(),
		Ingredients:     r.Ingredients,
		Instructions:    r.Instructions,
		CookTimeMinutes: r.CookTimeMinutes,
		ImageURL:        fileURL("images", r.ImageID),
		RecipeTypes:     taxonRefs(r.RecipeTypes),
		Regions:         taxonRefs(r.Regions),
	}
}

type commentDTO struct {
	ID          string    `json:"id"`
	ContentID   string    `json:"content_id"`
	ContentKind string    `json:"content_kind"`
	ParentID    *string   `json:"parent_id"`
	Text        string    `json:"text"`
	Author      authorDTO `json:"author"`
	CreatedOn   time.Time `json:"created_on"`
	ModifiedOn  time.Time `json:"modified_on"`
}

func toComment(m model.Comment) commentDTO {
	return commentDTO{
		ID: m.ID, ContentID: m.ContentID, ContentKind: string(m.ContentKind),
		ParentID: m.ParentID, Text: m.Text,
		Author:    author(m.UserID, m.Username, m.AvatarID),
		CreatedOn: m.CreatedOn, ModifiedOn: m.ModifiedOn,
	}
}

type likeDTO struct {
	ID        string    `json:"id"`
	ContentID string    `json:"content_id"`
	User      authorDTO `json:"user"`
	CreatedOn time.Time `json:"created_on"`
}

func toLike(l model.Like) likeDTO {
	return likeDTO{ID: l.ID, ContentID: l.ContentID, User: author(l.UserID, l.Username, l.AvatarID), CreatedOn: l.CreatedOn}
}

type taxonDTO struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UsageCount int64     `json:"usage_count"`
	CreatedOn  time.Time `json:"created_on"`
	ModifiedOn time.Time `json:"modified_on"`
}

func toTaxon(t model.Taxon) taxonDTO {
	return taxonDTO{ID: t.ID, Name: t.Name, UsageCount: t.UsageCount, CreatedOn: t.CreatedOn, ModifiedOn: t.ModifiedOn}
}

// ----- request DTOs -----

type contentReq struct {
	Title   *string `json:"title"`
	Excerpt *string `json:"excerpt"`
	Status  *string `json:"status"`
}

type statusReq struct {
	Status string `json:"status"`
}
