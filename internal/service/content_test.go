package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/repository"
	"github.com/iliyamo/contenthub/internal/service"
)

func seedTaxon(t *testing.T, e *env, tx model.Taxonomy, name string) model.Taxon {
	t.Helper()
	x := model.Taxon{Name: name}
	require.NoError(t, e.store.Taxonomies.Create(context.Background(), tx, &x))
	return x
}

func articleInput(title, typeID string) service.ArticleInput {
	return service.ArticleInput{
		ContentInput:       service.ContentInput{Title: ptr(title), Excerpt: ptr("short")},
		Body:               ptr("long body text"),
		ReadingTimeMinutes: ptr(5),
		ArticleTypeID:      ptr(typeID),
	}
}

func TestArticleLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, alice := e.register(t, "alice")
	_, bob := e.register(t, "bob")
	news := seedTaxon(t, e, model.TaxonomyArticleType, "News")

	_, err := e.articles.Create(ctx, articleInput("Hello", "missing"), alice)
	requireCode(t, err, service.CodeNotFound)

	_, err = e.articles.Create(ctx, articleInput("Hello", news.ID), service.Actor{})
	requireCode(t, err, service.CodeUnauthorized)

	bad := articleInput("", news.ID)
	bad.ReadingTimeMinutes = ptr(0)
	_, err = e.articles.Create(ctx, bad, alice)
	requireCode(t, err, service.CodeValidation)
	assert.Equal(t, []string{"reading_time_minutes", "title"}, service.FieldNames(err))

	a, err := e.articles.Create(ctx, articleInput("Hello, World!", news.ID), alice)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, a.Status)
	assert.Equal(t, "hello-world", a.Slug)
	assert.Equal(t, "News", a.ArticleTypeName)
	assert.Equal(t, "alice", a.AuthorUsername)

	anon := service.Viewer{IP: "10.0.0.1", UserAgent: "test"}

	t.Run("draft hidden from others", func(t *testing.T) {
		_, err := e.articles.Get(ctx, a.ID, anon)
		requireCode(t, err, service.CodeNotFound)
		_, err = e.articles.Get(ctx, a.ID, service.Viewer{Actor: bob})
		requireCode(t, err, service.CodeNotFound)
		_, err = e.articles.GetBySlug(ctx, a.Slug, anon)
		requireCode(t, err, service.CodeNotFound)

		got, err := e.articles.Get(ctx, a.ID, service.Viewer{Actor: alice})
		require.NoError(t, err)
		assert.Zero(t, got.ViewsCount)

		list, total, err := e.articles.List(ctx, service.ArticleQuery{})
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, list)

		mine, total, err := e.articles.My(ctx, alice, service.ArticleQuery{ListQuery: service.ListQuery{Status: "draft"}})
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		assert.Len(t, mine, 1)
	})

	t.Run("only author or admin changes status", func(t *testing.T) {
		_, err := e.articles.ChangeStatus(ctx, a.ID, model.StatusPublished, bob)
		requireCode(t, err, service.CodeForbidden)
		_, err = e.articles.ChangeStatus(ctx, a.ID, "Deleted", alice)
		requireCode(t, err, service.CodeValidation)
		assert.Empty(t, e.events.Events())
	})

	t.Run("publish", func(t *testing.T) {
		c, err := e.articles.ChangeStatus(ctx, a.ID, "published", alice)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPublished, c.Status)

		evs := e.events.Events()
		require.Len(t, evs, 1)
		assert.Equal(t, a.ID, evs[0].ContentID)
		assert.Equal(t, "article", evs[0].Kind)
		assert.Equal(t, alice.UserID, evs[0].AuthorID)

		// publishing twice emits nothing new
		_, err = e.articles.ChangeStatus(ctx, a.ID, model.StatusPublished, alice)
		require.NoError(t, err)
		assert.Len(t, e.events.Events(), 1)
	})

	t.Run("views recorded on published reads", func(t *testing.T) {
		got, err := e.articles.Get(ctx, a.ID, anon)
		require.NoError(t, err)
		assert.EqualValues(t, 1, got.ViewsCount)

		got, err = e.articles.GetBySlug(ctx, "Hello-World", service.Viewer{Actor: bob})
		require.NoError(t, err)
		assert.EqualValues(t, 2, got.ViewsCount)

		n, err := e.store.Views.Count(ctx, a.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)
	})

	t.Run("update regenerates slug", func(t *testing.T) {
		_, err := e.articles.Update(ctx, a.ID, service.ArticleInput{ContentInput: service.ContentInput{Title: ptr("x")}}, bob)
		requireCode(t, err, service.CodeForbidden)

		got, err := e.articles.Update(ctx, a.ID, service.ArticleInput{
			ContentInput:       service.ContentInput{Title: ptr("Second Title")},
			ReadingTimeMinutes: ptr(12),
		}, alice)
		require.NoError(t, err)
		assert.Equal(t, "second-title", got.Slug)
		assert.Equal(t, 12, got.ReadingTimeMinutes)
		assert.Equal(t, "long body text", got.Body)
		assert.Equal(t, model.StatusPublished, got.Status)
	})

	t.Run("colliding slug falls back", func(t *testing.T) {
		other, err := e.articles.Create(ctx, articleInput("Second Title", news.ID), bob)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(other.Slug, "article-"), other.Slug)

		sym, err := e.articles.Create(ctx, articleInput("!!!", news.ID), bob)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(sym.Slug, "article-"), sym.Slug)
	})

	t.Run("delete", func(t *testing.T) {
		requireCode(t, e.articles.Delete(ctx, a.ID, bob), service.CodeForbidden)
		require.NoError(t, e.articles.Delete(ctx, a.ID, alice))
		_, err := e.articles.Get(ctx, a.ID, service.Viewer{Actor: alice})
		requireCode(t, err, service.CodeNotFound)
	})
}

func TestAdminMutatesForeignContent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	root := e.admin(t, "root")
	_, alice := e.register(t, "alice")
	news := seedTaxon(t, e, model.TaxonomyArticleType, "News")

	a, err := e.articles.Create(ctx, articleInput("Draft", news.ID), alice)
	require.NoError(t, err)

	_, err = e.articles.Get(ctx, a.ID, service.Viewer{Actor: root})
	require.NoError(t, err)
	_, err = e.articles.Update(ctx, a.ID, service.ArticleInput{Body: ptr("edited by admin")}, root)
	require.NoError(t, err)
	require.NoError(t, e.articles.Delete(ctx, a.ID, root))
}

func TestKindMismatchIsNotFound(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, alice := e.register(t, "alice")
	news := seedTaxon(t, e, model.TaxonomyArticleType, "News")

	a, err := e.articles.Create(ctx, articleInput("Article", news.ID), alice)
	require.NoError(t, err)

	_, err = e.books.Get(ctx, a.ID, service.Viewer{Actor: alice})
	requireCode(t, err, service.CodeNotFound)
	requireCode(t, e.recipes.Delete(ctx, a.ID, alice), service.CodeNotFound)
}

func TestBookFilesAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, alice := e.register(t, "alice")
	_, bob := e.register(t, "bob")
	fantasy := seedTaxon(t, e, model.TaxonomyGenre, "Fantasy")

	in := service.BookInput{
		ContentInput:  service.ContentInput{Title: ptr("The Hobbit"), Status: ptr("Published")},
		AuthorName:    ptr("J. R. R. Tolkien"),
		PageAmount:    ptr(310),
		YearOfPublish: ptr(1937),
		GenreIDs:      &[]string{"missing"},
	}
	_, err := e.books.Create(ctx, in, alice)
	requireCode(t, err, service.CodeNotFound)

	in.GenreIDs = &[]string{fantasy.ID, fantasy.ID}
	b, err := e.books.Create(ctx, in, alice)
	require.NoError(t, err)
	require.Len(t, b.Genres, 1)
	assert.Equal(t, "Fantasy", b.Genres[0].Name)
	require.Len(t, e.events.Events(), 1)

	doc := service.Upload{FileName: "hobbit.pdf", Size: 4, Body: strings.NewReader("%PDF")}
	_, err = e.books.UploadFile(ctx, b.ID, doc, bob)
	requireCode(t, err, service.CodeForbidden)

	doc.Body = strings.NewReader("%PDF")
	b, err = e.books.UploadFile(ctx, b.ID, doc, alice)
	require.NoError(t, err)
	require.NotNil(t, b.BookFileID)
	assert.EqualValues(t, 4, b.FileSizeBytes)

	cover := service.Upload{FileName: "cover.jpg", Size: 3, Body: strings.NewReader("jpg")}
	b, err = e.books.UploadCover(ctx, b.ID, cover, alice)
	require.NoError(t, err)
	require.NotNil(t, b.CoverFileID)
	assert.Equal(t, 2, e.blobs.Len())

	obj, err := e.books.ReadFile(ctx, b.ID, service.Viewer{})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", obj.ContentType)
	obj.Body.Close()

	list, total, err := e.books.List(ctx, service.BookQuery{GenreIDs: []string{fantasy.ID}, YearMin: 1900, YearMax: 2000})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)

	_, _, err = e.books.List(ctx, service.BookQuery{YearMin: 2000, YearMax: 1900})
	requireCode(t, err, service.CodeValidation)

	require.NoError(t, e.books.Delete(ctx, b.ID, alice))
	assert.Zero(t, e.blobs.Len())
}

func TestRecipeCreateAndFilter(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, alice := e.register(t, "alice")
	soup := seedTaxon(t, e, model.TaxonomyRecipeType, "Soup")
	asia := seedTaxon(t, e, model.TaxonomyRegion, "Asia")

	in := service.RecipeInput{
		ContentInput:    service.ContentInput{Title: ptr("Miso Soup"), Status: ptr("Published")},
		Difficulty:      ptr("medium"),
		Ingredients:     ptr("miso, tofu"),
		Instructions:    ptr("mix"),
		CookTimeMinutes: ptr(15),
		RecipeTypeIDs:   &[]string{soup.ID},
		RegionIDs:       &[]string{asia.ID},
	}
	r, err := e.recipes.Create(ctx, in, alice)
	require.NoError(t, err)
	assert.Equal(t, model.DifficultyMedium, r.Difficulty)
	require.Len(t, r.RecipeTypes, 1)
	require.Len(t, r.Regions, 1)

	list, total, err := e.recipes.List(ctx, service.RecipeQuery{Difficulty: "Medium", RegionIDs: []string{asia.ID}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, list, 1)

	_, _, err = e.recipes.List(ctx, service.RecipeQuery{Difficulty: "Impossible"})
	requireCode(t, err, service.CodeValidation)

	img := service.Upload{FileName: "soup.webp", Size: 4, Body: strings.NewReader("webp")}
	r, err = e.recipes.UploadImage(ctx, r.ID, img, alice)
	require.NoError(t, err)
	require.NotNil(t, r.ImageID)

	r, err = e.recipes.Update(ctx, r.ID, service.RecipeInput{RegionIDs: &[]string{}}, alice)
	require.NoError(t, err)
	assert.Empty(t, r.Regions)
	assert.Len(t, r.RecipeTypes, 1)
}

func TestComments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, alice := e.register(t, "alice")
	_, bob := e.register(t, "bob")
	news := seedTaxon(t, e, model.TaxonomyArticleType, "News")

	pub := articleInput("One", news.ID)
	pub.Status = ptr("Published")
	one, err := e.articles.Create(ctx, pub, alice)
	require.NoError(t, err)
	pub.Title = ptr("Two")
	two, err := e.articles.Create(ctx, pub, alice)
	require.NoError(t, err)

	root, err := e.comments.Create(ctx, service.CommentInput{ContentID: one.ID, Text: "first"}, bob)
	require.NoError(t, err)
	assert.Equal(t, "bob", root.Username)
	assert.Equal(t, model.KindArticle, root.ContentKind)

	_, err = e.comments.Create(ctx, service.CommentInput{ContentID: two.ID, ParentID: &root.ID, Text: "wrong"}, bob)
	requireCode(t, err, service.CodeValidation)
	assert.Equal(t, []string{"parent_id"}, service.FieldNames(err))

	reply, err := e.comments.Create(ctx, service.CommentInput{ContentID: one.ID, ParentID: &root.ID, Text: "reply"}, alice)
	require.NoError(t, err)
	require.NotNil(t, reply.ParentID)

	_, err = e.comments.Create(ctx, service.CommentInput{ContentID: one.ID, Text: "   "}, alice)
	requireCode(t, err, service.CodeValidation)

	_, err = e.comments.Update(ctx, root.ID, "hijack", alice)
	requireCode(t, err, service.CodeForbidden)
	edited, err := e.comments.Update(ctx, root.ID, "edited", bob)
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Text)

	list, total, err := e.comments.ListByContent(ctx, one.ID, service.Actor{}, repository.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, list, 2)

	list, _, err = e.content.Comments(ctx, model.KindArticle, one.ID, service.Actor{}, repository.Page{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	_, _, err = e.content.Comments(ctx, model.KindBook, one.ID, service.Actor{}, repository.Page{})
	requireCode(t, err, service.CodeNotFound)

	// deleting the root removes its reply
	require.NoError(t, e.comments.Delete(ctx, root.ID, bob))
	_, total, err = e.comments.ListByContent(ctx, one.ID, service.Actor{}, repository.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCommentParentLookupFailure(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, alice := e.register(t, "alice")
	news := seedTaxon(t, e, model.TaxonomyArticleType, "News")

	in := articleInput("One", news.ID)
	in.Status = ptr("Published")
	a, err := e.articles.Create(ctx, in, alice)
	require.NoError(t, err)

	_, err = e.comments.Create(ctx, service.CommentInput{ContentID: a.ID, ParentID: ptr("missing"), Text: "hi"}, alice)
	requireCode(t, err, service.CodeValidation)

	// a row that exists but cannot be scanned
	_, err = e.db.ExecContext(ctx,
		"INSERT INTO comments (id, content_id, user_id, text, created_on, modified_on) VALUES ('broken', ?, ?, 'x', 'not a time', 'not a time')",
		a.ID, alice.UserID)
	require.NoError(t, err)
	_, err = e.comments.Create(ctx, service.CommentInput{ContentID: a.ID, ParentID: ptr("broken"), Text: "hi"}, alice)
	require.Error(t, err)
	assert.Empty(t, service.ErrorCode(err))
}

func TestLikes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, alice := e.register(t, "alice")
	_, bob := e.register(t, "bob")
	news := seedTaxon(t, e, model.TaxonomyArticleType, "News")

	draft, err := e.articles.Create(ctx, articleInput("Draft", news.ID), alice)
	require.NoError(t, err)
	_, err = e.likes.Toggle(ctx, draft.ID, bob)
	requireCode(t, err, service.CodeNotFound)

	_, err = e.articles.ChangeStatus(ctx, draft.ID, model.StatusPublished, alice)
	require.NoError(t, err)

	st, err := e.likes.Toggle(ctx, draft.ID, bob)
	require.NoError(t, err)
	assert.True(t, st.Liked)
	assert.EqualValues(t, 1, st.Count)

	st, err = e.likes.Check(ctx, draft.ID, bob)
	require.NoError(t, err)
	assert.True(t, st.Liked)

	mine, total, err := e.likes.My(ctx, bob, repository.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, mine, 1)

	st, err = e.likes.Toggle(ctx, draft.ID, bob)
	require.NoError(t, err)
	assert.False(t, st.Liked)
	assert.Zero(t, st.Count)

	_, err = e.likes.Toggle(ctx, draft.ID, service.Actor{})
	requireCode(t, err, service.CodeUnauthorized)
}

func TestTaxonomyAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	root := e.admin(t, "root")
	_, alice := e.register(t, "alice")

	_, err := e.taxa.Create(ctx, model.TaxonomyGenre, "Horror", alice)
	requireCode(t, err, service.CodeForbidden)

	horror, err := e.taxa.Create(ctx, model.TaxonomyGenre, "Horror", root)
	require.NoError(t, err)
	_, err = e.taxa.Create(ctx, model.TaxonomyGenre, " horror ", root)
	requireCode(t, err, service.CodeConflict)

	// genres are public, article types are not
	_, _, err = e.taxa.List(ctx, model.TaxonomyGenre, service.Actor{}, repository.Page{})
	require.NoError(t, err)
	_, _, err = e.taxa.List(ctx, model.TaxonomyArticleType, alice, repository.Page{})
	requireCode(t, err, service.CodeForbidden)

	renamed, err := e.taxa.Update(ctx, model.TaxonomyGenre, horror.ID, "Thriller", root)
	require.NoError(t, err)
	assert.Equal(t, "Thriller", renamed.Name)

	_, err = e.books.Create(ctx, service.BookInput{
		ContentInput:  service.ContentInput{Title: ptr("It")},
		AuthorName:    ptr("Stephen King"),
		PageAmount:    ptr(1138),
		YearOfPublish: ptr(1986),
		GenreIDs:      &[]string{horror.ID},
	}, alice)
	require.NoError(t, err)

	requireCode(t, e.taxa.Delete(ctx, model.TaxonomyGenre, horror.ID, root), service.CodeConflict)

	x, err := e.taxa.Get(ctx, model.TaxonomyGenre, horror.ID, service.Actor{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, x.UsageCount)

	unused, err := e.taxa.Create(ctx, model.TaxonomyGenre, "Poetry", root)
	require.NoError(t, err)
	require.NoError(t, e.taxa.Delete(ctx, model.TaxonomyGenre, unused.ID, root))
	_, err = e.taxa.Get(ctx, model.TaxonomyGenre, unused.ID, service.Actor{})
	requireCode(t, err, service.CodeNotFound)
}
