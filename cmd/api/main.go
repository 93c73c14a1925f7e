package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-forum-core/internal/account"
	accountrepo "github.com/ovaphlow/pitchfork/service-forum-core/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/config"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/economy"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/group"
	grouprepo "github.com/ovaphlow/pitchfork/service-forum-core/internal/group/repo"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/notification"
	notificationrepo "github.com/ovaphlow/pitchfork/service-forum-core/internal/notification/repo"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/notify"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/post"
	postrepo "github.com/ovaphlow/pitchfork/service-forum-core/internal/post/repo"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/router"
	"github.com/ovaphlow/pitchfork/service-forum-core/internal/token"
	"github.com/ovaphlow/pitchfork/service-forum-core/pkg/database"
	"github.com/ovaphlow/pitchfork/service-forum-core/pkg/utilities"
)

// stores is the persistence for every domain, backed by one database or
// by process memory.
type stores struct {
	accounts interface {
		account.Store
		economy.Store
	}
	posts         post.Store
	groups        group.Store
	notifications notification.Store
	close         func()
}

func main() {
	// best-effort: without a .env file the real environment is used
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-forum-core")

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, sugar)
	if err != nil {
		sugar.Fatalf("store: %v", err)
	}
	defer st.close()

	tokens, err := token.NewService([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.TokenTTL, nil)
	if err != nil {
		sugar.Fatalf("token service: %v", err)
	}

	var external notify.Notifier = notify.NewLogNotifier(sugar)
	if len(cfg.KafkaBrokers) > 0 {
		kn := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kn.Close(); err != nil {
				sugar.Warnf("kafka writer close failed: %v", err)
			}
		}()
		external = kn
		sugar.Infow("notices go to kafka", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	ids := utilities.NewIDGenerator(cfg.SnowflakeNode)
	inApp := notification.NewService(st.notifications, nil, ids.Next)

	// the reset token only travels externally; the in-app copy is a courtesy
	resets := notify.Fanout{external, notify.BestEffort(inApp, sugar)}
	comments := notify.Fanout{inApp, external}

	accountSvc := account.NewService(st.accounts, account.BcryptHasher{Cost: cfg.BcryptCost}, tokens, resets, nil, ids.Next)
	economySvc := economy.NewService(st.accounts, nil)
	postSvc := post.NewService(st.posts, comments, nil, ids.Next, sugar)
	groupSvc := group.NewService(st.groups, nil, ids.Next)

	handler := router.RegisterRoutes(sugar, router.Handlers{
		Accounts:      account.NewHandler(accountSvc, sugar),
		Economy:       economy.NewHandler(economySvc, sugar),
		Posts:         post.NewHandler(postSvc, sugar),
		Groups:        group.NewHandler(groupSvc, sugar),
		Notifications: notification.NewHandler(inApp, sugar),
		Verifier:      tokens,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("service is running; press Ctrl+C to stop", "addr", cfg.HTTPAddr)

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}

func openStores(ctx context.Context, cfg config.Config, sugar *zap.SugaredLogger) (*stores, error) {
	if cfg.Store == config.StoreMemory {
		sugar.Warn("using in-memory stores; data is lost on restart")
		return &stores{
			accounts:      accountrepo.NewMemoryRepo(nil),
			posts:         postrepo.NewMemoryRepo(),
			groups:        grouprepo.NewMemoryRepo(),
			notifications: notificationrepo.NewMemoryRepo(),
			close:         func() {},
		}, nil
	}

	db, err := database.Connect(ctx, database.ConfigFromEnv())
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &stores{
		accounts:      accountrepo.NewAccountRepo(db),
		posts:         postrepo.NewPostRepo(db),
		groups:        grouprepo.NewGroupRepo(db),
		notifications: notificationrepo.NewNotificationRepo(db),
		close:         func() { _ = db.Close() },
	}, nil
}
