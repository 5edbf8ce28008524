package main

import (
	"context"
	"database/sql"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	chirp "github.com/goliatone/go-chirp"
	"github.com/goliatone/go-chirp/config"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config *gconfig.Container[*config.BaseConfig]
	bunDB  *bun.DB
	auth   chirp.Authenticator
	auther chirp.HTTPAuthenticator
	repo   chirp.RepositoryManager
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Debug),
		glog.WithName("chirpd"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithRoutes(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(app.Config().GetServer().GetAddr())

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.Config().GetPersistence().GetDSN())
	if err != nil {
		log.Fatal(err)
		return err
	}

	persistence.RegisterModel((*chirp.User)(nil))
	persistence.RegisterModel((*chirp.Follow)(nil))
	persistence.RegisterModel((*chirp.Tweet)(nil))
	persistence.RegisterModel((*chirp.TweetLike)(nil))
	persistence.RegisterModel((*chirp.Article)(nil))
	persistence.RegisterModel((*chirp.ArticleLike)(nil))
	persistence.RegisterModel((*chirp.ArticleComment)(nil))

	pcfg := app.Config().GetPersistence()
	dialect := sqlitedialect.New()
	client, err := persistence.New(pcfg, db, dialect)
	if err != nil {
		log.Fatal(err)
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(chirp.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = chirp.NewRepositoryManager(client.DB())

	return app.repo.Validate()
}

func WithHTTPServer(ctx context.Context, app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:       app.Config().GetName(),
			UnescapePath:  true,
			StrictRouting: false,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	app.srv = srv
	return nil
}

// userTrackerAdapter narrows the users repository to the tracker
// interface the identity provider consumes.
type userTrackerAdapter struct {
	users chirp.Users
}

func (a userTrackerAdapter) GetByIdentifier(ctx context.Context, identifier string) (*chirp.User, error) {
	return a.users.GetByIdentifier(ctx, identifier)
}

func (a userTrackerAdapter) TrackAttemptedLogin(ctx context.Context, user *chirp.User) error {
	return a.users.TrackAttemptedLogin(ctx, user)
}

func (a userTrackerAdapter) TrackSuccessfulLogin(ctx context.Context, user *chirp.User) error {
	return a.users.TrackSuccessfulLogin(ctx, user)
}

func WithRoutes(ctx context.Context, app *App) error {
	acfg := app.Config().GetAuth()

	userProvider := chirp.NewUserProvider(userTrackerAdapter{users: app.repo.Users()})
	userProvider.WithLogger(app.GetLogger("auth:prv"))

	authenticator := chirp.NewAuthenticator(userProvider, acfg)
	authenticator.WithLogger(app.GetLogger("auth"))
	app.auth = authenticator

	httpAuth, err := chirp.NewHTTPAuthenticator(authenticator, acfg)
	if err != nil {
		return err
	}
	app.auther = httpAuth

	p := app.srv.Router()

	authErrHandler := httpAuth.MakeClientRouteAuthErrorHandler(false)
	protected := httpAuth.ProtectedRoute(acfg, authErrHandler)
	adminOnly := httpAuth.ProtectedRouteMinRole(acfg, string(chirp.RoleAdmin), authErrHandler)

	chirp.RegisterAuthRoutes(p.Group("/"), func(ac *chirp.AuthController) *chirp.AuthController {
		ac.Auther = httpAuth
		ac.Auth = authenticator
		ac.Repo = app.repo
		ac.Config = acfg
		ac.WithLogger(app.GetLogger("auth:ctrl"))
		return ac
	})

	chirp.RegisterUserRoutes(p.Group("/"), protected, func(uc *chirp.UserController) *chirp.UserController {
		uc.Repo = app.repo
		uc.Config = acfg
		uc.Auther = httpAuth
		uc.WithLogger(app.GetLogger("users:ctrl"))
		return uc
	})

	chirp.RegisterTweetRoutes(p.Group("/"), protected, func(tc *chirp.TweetController) *chirp.TweetController {
		tc.Repo = app.repo
		tc.Config = acfg
		tc.WithLogger(app.GetLogger("tweets:ctrl"))
		return tc
	})

	chirp.RegisterArticleRoutes(p.Group("/"), protected, adminOnly, func(ac *chirp.ArticleController) *chirp.ArticleController {
		ac.Repo = app.repo
		ac.Config = acfg
		ac.WithLogger(app.GetLogger("articles:ctrl"))
		return ac
	})

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
