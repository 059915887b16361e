package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/contenthub/internal/config"
	"github.com/iliyamo/contenthub/internal/handler"
	"github.com/iliyamo/contenthub/internal/middleware"
	"github.com/iliyamo/contenthub/internal/model"
	"github.com/iliyamo/contenthub/internal/service"
	"github.com/iliyamo/contenthub/internal/utils"
)

// bodyLimit caps request bodies; it sits above the largest document upload.
const bodyLimit = "64M"

// Services is everything the HTTP layer needs from the service layer.
type Services struct {
	Auth     *service.AuthService
	Users    *service.UserService
	Articles *service.ArticleService
	Books    *service.BookService
	Recipes  *service.RecipeService
	Comments *service.CommentService
	Likes    *service.LikeService
	Taxa     *service.TaxonomyService
	Files    *service.FileService
}

// Options carries the infrastructure shared by the middleware.  Redis may
// be nil, in which case rate limiting and caching are skipped.
type Options struct {
	Dev       bool
	DB        *sql.DB
	Tokens    *utils.TokenIssuer
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Logger    *slog.Logger
	Gatherer  prometheus.Gatherer
}

// New builds the echo instance with the global middleware chain and
// every route registered.
func New(s Services, o Options) *echo.Echo {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.NewErrorHandler(o.Dev, o.Logger)

	// The request id must exist before the logger runs; Recover sits
	// innermost so panics still get logged and counted.
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(o.Logger))
	e.Use(middleware.Metrics())
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.BodyLimit(bodyLimit))

	RegisterRoutes(e, o)
	api := e.Group("/api", middleware.OptionalJWT(o.Tokens))
	RegisterAuth(api, handler.NewAuthHandler(s.Auth), o)
	RegisterUsers(api, handler.NewUserHandler(s.Users), o)
	RegisterContent(api, s, o)
	RegisterInteractions(api, handler.NewCommentHandler(s.Comments), handler.NewLikeHandler(s.Likes), o)
	RegisterTaxonomies(api, s.Taxa, o)

	files := handler.NewFileHandler(s.Files)
	api.GET("/files/images/:id", files.Image)
	return e
}

// RegisterRoutes registers the operational endpoints: health and metrics.
func RegisterRoutes(e *echo.Echo, o Options) {
	// Map GET /healthz to the Health handler; load balancers use it to
	// verify that the service and its database are up.
	e.GET("/healthz", handler.Health(o.DB))

	gatherer := o.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// RegisterAuth registers the authentication routes.  Register, login and
// refresh are rate limited per client IP and route.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, o Options) {
	limit := middleware.NewTokenBucket(o.RateLimit, o.Redis, o.Logger)
	auth := middleware.JWTAuth(o.Tokens)

	g := api.Group("/auth")
	g.POST("/register", a.Register, limit)
	g.POST("/login", a.Login, limit)
	// Rotates the refresh token; the old one is dead afterwards.
	g.POST("/refresh", a.Refresh, limit)
	g.POST("/logout", a.Logout, auth)
	g.POST("/logout-all", a.LogoutAll, auth)
	g.GET("/me", a.Me, auth)
}

// RegisterUsers registers user administration and avatar routes.
func RegisterUsers(api *echo.Group, u *handler.UserHandler, o Options) {
	auth := middleware.JWTAuth(o.Tokens)
	admin := middleware.RequireRole(model.RoleAdmin)

	g := api.Group("/users")
	g.GET("", u.List, auth, admin)
	g.GET("/:id", u.Get, auth)
	g.PUT("/:id", u.Update, auth)
	g.DELETE("/:id", u.Delete, auth, admin)
	g.PATCH("/:id/avatar", u.UploadAvatar, auth)
	g.GET("/:id/avatar", u.Avatar)
}

// contentEndpoints is implemented by the three content handlers.
type contentEndpoints interface {
	List(echo.Context) error
	My(echo.Context) error
	Get(echo.Context) error
	GetBySlug(echo.Context) error
	Create(echo.Context) error
	Update(echo.Context) error
	Delete(echo.Context) error
	Status(echo.Context) error
	Comments(echo.Context) error
	Likes(echo.Context) error
}

func mountContent(g *echo.Group, h contentEndpoints, auth echo.MiddlewareFunc) {
	g.GET("", h.List)
	g.GET("/my", h.My, auth)
	g.GET("/by-slug/:slug", h.GetBySlug)
	g.GET("/:id", h.Get)
	g.POST("", h.Create, auth)
	g.PUT("/:id", h.Update, auth)
	g.DELETE("/:id", h.Delete, auth)
	g.PATCH("/:id/status", h.Status, auth)
	g.GET("/:id/comments", h.Comments)
	g.GET("/:id/likes", h.Likes)
}

// RegisterContent registers articles, books and recipes.  Reads are
// public; drafts are only visible to their author and admins.
func RegisterContent(api *echo.Group, s Services, o Options) {
	auth := middleware.JWTAuth(o.Tokens)

	articles := handler.NewArticleHandler(s.Articles)
	mountContent(api.Group("/articles"), articles, auth)

	books := handler.NewBookHandler(s.Books)
	bg := api.Group("/books")
	mountContent(bg, books, auth)
	bg.POST("/:id/cover", books.UploadCover, auth)
	bg.POST("/:id/file", books.UploadFile, auth)
	bg.GET("/:id/read", books.Read)

	recipes := handler.NewRecipeHandler(s.Recipes)
	rg := api.Group("/recipes")
	mountContent(rg, recipes, auth)
	rg.POST("/:id/image", recipes.UploadImage, auth)
}

// RegisterInteractions registers comments and likes.
func RegisterInteractions(api *echo.Group, cm *handler.CommentHandler, lk *handler.LikeHandler, o Options) {
	auth := middleware.JWTAuth(o.Tokens)

	c := api.Group("/comments")
	c.GET("/content/:id", cm.ByContent)
	c.GET("/user/:id", cm.ByUser, auth)
	c.POST("", cm.Create, auth)
	c.PUT("/:id", cm.Update, auth)
	c.DELETE("/:id", cm.Delete, auth)

	l := api.Group("/likes")
	l.GET("/content/:id", lk.ByContent)
	l.GET("/my", lk.My, auth)
	l.POST("/content/:id/toggle", lk.Toggle, auth)
	l.GET("/content/:id/check", lk.Check, auth)
}

// RegisterTaxonomies mounts one CRUD group per lookup table.  Article
// types are admin-only; the public tables serve reads from the response
// cache and drop it on every successful write.
func RegisterTaxonomies(api *echo.Group, taxa *service.TaxonomyService, o Options) {
	auth := middleware.JWTAuth(o.Tokens)
	admin := middleware.RequireRole(model.RoleAdmin)

	at := handler.NewTaxonomyHandler(taxa, model.TaxonomyArticleType)
	g := api.Group("/article-types", auth, admin)
	g.GET("", at.List)
	g.GET("/:id", at.Get)
	g.POST("", at.Create)
	g.PUT("/:id", at.Update)
	g.DELETE("/:id", at.Delete)

	public := []struct {
		path string
		t    model.Taxonomy
	}{
		{"/genres", model.TaxonomyGenre},
		{"/regions", model.TaxonomyRegion},
		{"/recipe-types", model.TaxonomyRecipeType},
	}
	for _, p := range public {
		h := handler.NewTaxonomyHandler(taxa, p.t)
		group := string(p.t)
		g := api.Group(p.path,
			middleware.NewRedisCache(o.Cache, o.Redis, group),
			middleware.InvalidateCache(o.Cache, o.Redis, group, o.Logger))
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.POST("", h.Create, auth, admin)
		g.PUT("/:id", h.Update, auth, admin)
		g.DELETE("/:id", h.Delete, auth, admin)
	}
}
