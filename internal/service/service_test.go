package service_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/contenthub/internal/database/dbtest"
	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/queue"
	"github.com/iliyamo/contenthub/internal/repository"
	"github.com/iliyamo/contenthub/internal/service"
	"github.com/iliyamo/contenthub/internal/storage"
	"github.com/iliyamo/contenthub/internal/utils"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ContentPublishedEvent
}

func (p *recordingPublisher) PublishContentPublished(_ context.Context, ev queue.ContentPublishedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []queue.ContentPublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.ContentPublishedEvent(nil), p.events...)
}

type env struct {
	db       *sql.DB
	store    *repository.Store
	blobs    *storage.MemoryStore
	events   *recordingPublisher
	auth     *service.AuthService
	users    *service.UserService
	content  *service.ContentService
	articles *service.ArticleService
	books    *service.BookService
	recipes  *service.RecipeService
	comments *service.CommentService
	likes    *service.LikeService
	taxa     *service.TaxonomyService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithIssuer(t, utils.NewTokenIssuer("test-secret", "contenthub", "contenthub-api", 15*time.Minute, 7*24*time.Hour))
}

func newEnvWithIssuer(t *testing.T, issuer *utils.TokenIssuer) *env {
	t.Helper()
	db := dbtest.Open(t)
	store := repository.NewStore(db)
	blobs := storage.NewMemoryStore()
	files := service.NewFileService(blobs, nil)
	events := &recordingPublisher{}
	content := service.NewContentService(store, files, events, nil)
	return &env{
		db:       db,
		store:    store,
		blobs:    blobs,
		events:   events,
		auth:     service.NewAuthService(store, issuer, bcrypt.MinCost, nil),
		users:    service.NewUserService(store, files, nil),
		content:  content,
		articles: service.NewArticleService(content),
		books:    service.NewBookService(content),
		recipes:  service.NewRecipeService(content),
		comments: service.NewCommentService(store, nil),
		likes:    service.NewLikeService(store),
		taxa:     service.NewTaxonomyService(store, nil),
	}
}

// register creates a user through the auth service and returns it as an actor.
func (e *env) register(t *testing.T, name string) (service.AuthResult, service.Actor) {
	t.Helper()
	res, err := e.auth.Register(context.Background(), service.RegisterInput{
		Username: name, Email: name + "@example.com", Password: "secret123",
	})
	require.NoError(t, err)
	return res, service.Actor{UserID: res.User.ID, Role: res.User.Role}
}

// admin creates a user and promotes it.
func (e *env) admin(t *testing.T, name string) service.Actor {
	t.Helper()
	res, _ := e.register(t, name)
	u := res.User
	u.Role = model.RoleAdmin
	require.NoError(t, e.store.Users.Update(context.Background(), &u))
	return service.Actor{UserID: u.ID, Role: model.RoleAdmin}
}

func ptr[T any](v T) *T { return &v }

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, service.ErrorCode(err), "error: %v", err)
}
