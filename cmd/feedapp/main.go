package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ManiGOo/feedapp-go/internal/client"
	"github.com/ManiGOo/feedapp-go/internal/config"
	"github.com/ManiGOo/feedapp-go/internal/credentials"
	"github.com/ManiGOo/feedapp-go/internal/feed"
	"github.com/ManiGOo/feedapp-go/internal/models"
	"github.com/ManiGOo/feedapp-go/internal/session"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// app агрегирует зависимости команд.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	store   credentials.Store
	api     *client.Client
	session *session.Manager
	guard   *session.Guard
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)

	dir, err := cfg.Credentials.ResolveDir()
	if err != nil {
		return nil, err
	}

	store, err := credentials.NewFileStore(dir)
	if err != nil {
		return nil, err
	}

	api, err := client.New(client.Options{
		BaseURL:   cfg.API.BaseURL,
		Store:     store,
		Logger:    log,
		UserAgent: cfg.API.UserAgent,
		Timeout:   cfg.Timeouts.Request,
	})
	if err != nil {
		return nil, err
	}

	sess := session.NewManager(store, api, log)

	// Необратимый отказ refresh в транспорте объявляет сессию
	// недействительной; guard на следующем решении уведёт на вход.
	api.SetOnSessionInvalid(sess.Invalidate)

	return &app{
		cfg:     cfg,
		log:     log,
		store:   store,
		api:     api,
		session: sess,
		guard:   session.NewGuard(sess),
	}, nil
}

// runProtected выполняет стартовый сценарий сессии и пускает к защищённой
// команде только из Authenticated; Anonymous — аналог редиректа на вход.
func (a *app) runProtected(ctx context.Context, fn func(context.Context) error) error {
	a.session.Init(ctx)

	switch a.guard.Decide() {
	case session.DecisionAllow:
		return fn(ctx)
	case session.DecisionWait:
		// после Init состояние всегда разрешено; Wait здесь — программная ошибка
		return errors.New("session not resolved")
	default:
		return fmt.Errorf("not logged in: run `feedapp login` first (%s)", a.guard.LoginPath)
	}
}

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "feedapp",
		Short:         "Клиент социальной ленты feedAPP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root.AddCommand(
		loginCmd(ctx, &configPath),
		signupCmd(ctx, &configPath),
		logoutCmd(&configPath),
		whoamiCmd(ctx, &configPath),
		feedCmd(ctx, &configPath),
		likeCmd(ctx, &configPath),
		followCmd(ctx, &configPath),
		commentCmd(ctx, &configPath),
		postCmd(ctx, &configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loginCmd(ctx context.Context, configPath *string) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Войти и сохранить пару токенов",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}

			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}

			user, err := a.api.Login(ctx, args[0], pw)
			if err != nil {
				return loginError(err)
			}

			a.session.SetAuthenticated(user)
			fmt.Printf("logged in as %s (id=%d)\n", user.Username, user.ID)

			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (omit to read from stdin)")

	return cmd
}

func signupCmd(ctx context.Context, configPath *string) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "signup <username> <email>",
		Short: "Зарегистрироваться и сохранить пару токенов",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}

			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}

			user, err := a.api.Signup(ctx, args[0], args[1], pw)
			if err != nil {
				return loginError(err)
			}

			a.session.SetAuthenticated(user)
			fmt.Printf("signed up as %s (id=%d)\n", user.Username, user.ID)

			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (omit to read from stdin)")

	return cmd
}

func logoutCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Завершить сессию и удалить сохранённые токены",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}

			a.session.Logout()
			fmt.Println("logged out")

			return nil
		},
	}
}

func whoamiCmd(ctx context.Context, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Показать текущую личность сессии",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}

			return a.runProtected(ctx, func(context.Context) error {
				snap := a.session.Current()
				fmt.Printf("%s (id=%d, email=%s)\n",
					snap.Identity.Username, snap.Identity.ID, snap.Identity.Email)

				return nil
			})
		},
	}
}

func feedCmd(ctx context.Context, configPath *string) *cobra.Command {
	var following bool

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Показать ленту",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}

			return a.runProtected(ctx, func(ctx context.Context) error {
				tl := feed.NewTimeline(a.api, a.session, a.log)

				scope := feed.ScopeForYou
				if following {
					scope = feed.ScopeFollowing
				}

				if err := tl.Load(ctx, scope); err != nil {
					return err
				}

				for _, p := range tl.Posts() {
					printPost(p)
				}

				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&following, "following", false, "show the following feed")

	return cmd
}

func likeCmd(ctx context.Context, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "like <post-id>",
		Short: "Переключить лайк поста",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}

			postID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad post id %q", args[0])
			}

			return a.runProtected(ctx, func(ctx context.Context) error {
				tl := feed.NewTimeline(a.api, a.session, a.log)
				if err := tl.Load(ctx, feed.ScopeForYou); err != nil {
					return err
				}

				// Откат оптимистичного переключения не считается ошибкой
				// экрана: лента просто возвращается к прежнему виду.
				if err := tl.ToggleLike(ctx, postID); err != nil {
					a.log.Debug("like_not_applied", slog.String("err", err.Error()))
				}

				if p, ok := tl.Post(postID); ok {
					printPost(p)
				}

				return nil
			})
		},
	}
}

func followCmd(ctx context.Context, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "follow <user-id>",
		Short: "Переключить подписку на пользователя",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}

			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad user id %q", args[0])
			}

			return a.runProtected(ctx, func(ctx context.Context) error {
				res, err := a.api.ToggleFollow(ctx, userID)
				if err != nil {
					return err
				}

				if res.IsFollowing {
					fmt.Printf("now following user %d\n", userID)
				} else {
					fmt.Printf("unfollowed user %d\n", userID)
				}

				return nil
			})
		},
	}
}

func commentCmd(ctx context.Context, configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <post-id> <text>...",
		Short: "Добавить комментарий к посту",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}

			postID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("bad post id %q", args[0])
			}

			return a.runProtected(ctx, func(ctx context.Context) error {
				c, err := a.api.AddComment(ctx, postID, strings.Join(args[1:], " "))
				if err != nil {
					return err
				}

				fmt.Printf("comment %d added to post %d\n", c.ID, c.PostID)

				return nil
			})
		},
	}
}

func postCmd(ctx context.Context, configPath *string) *cobra.Command {
	var mediaURL, mediaType string

	cmd := &cobra.Command{
		Use:   "post <content>",
		Short: "Опубликовать пост",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}

			return a.runProtected(ctx, func(ctx context.Context) error {
				p, err := a.api.CreatePost(ctx, models.CreatePostRequest{
					Content:   args[0],
					MediaURL:  mediaURL,
					MediaType: mediaType,
				})
				if err != nil {
					return err
				}

				fmt.Printf("post %d published\n", p.ID)

				return nil
			})
		},
	}
	cmd.Flags().StringVar(&mediaURL, "media-url", "", "attached media URL")
	cmd.Flags().StringVar(&mediaType, "media-type", "", "attached media type: image or video")

	return cmd
}

// loginError вытаскивает человекочитаемое сообщение сервера из ошибки API.
func loginError(err error) error {
	if ae, ok := client.AsAPIError(err); ok {
		return errors.New(ae.Message)
	}

	return err
}

func resolvePassword(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}

	fmt.Fprint(os.Stderr, "password: ")
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return "", errors.New("no password provided")
	}

	return strings.TrimSpace(sc.Text()), nil
}

func printPost(p models.Post) {
	liked := " "
	if p.LikedByMe {
		liked = "*"
	}

	fmt.Printf("#%d @%s [%s%d likes, %d comments] %s\n",
		p.ID, p.Author, liked, p.LikeCount, p.CommentsCount, p.Content)
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
