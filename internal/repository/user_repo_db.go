package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/rescuerespond/rescuerespond/internal/cache"
	"github.com/rescuerespond/rescuerespond/internal/database"
	"github.com/rescuerespond/rescuerespond/internal/store"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

// UserDbRepository keeps users in the database, seeded from the users file.
// Usernames may be changed by users, so a file reload never touches the
// login of an existing user.
type UserDbRepository struct {
	logger   *slog.Logger
	userFile string
	cache    *cache.Cache[string, *model.User]
	dbm      *database.DatabaseManager

	watcher *fsnotify.Watcher
	done    chan struct{}
	mx      sync.Mutex
}

func NewUserDbRepository(userFile string, dbm *database.DatabaseManager) *UserDbRepository {
	u := &UserDbRepository{
		userFile: userFile,
		logger:   slog.With(slog.String("logger", "user_repo")),
		dbm:      dbm,
	}

	u.cache = cache.New(time.Second*10, time.Second*2, u.loadUser)

	return u
}

func (u *UserDbRepository) loadUser(login string) (*model.User, bool) {
	user := u.dbm.GetUser(login)

	return user, user != nil
}

func (u *UserDbRepository) Start() error {
	if err := u.loadUsersFile(); err != nil {
		return err
	}

	u.done = make(chan struct{})
	go u.purge(u.done)

	if u.userFile == "" {
		return nil
	}

	var err error
	u.watcher, err = fsnotify.NewWatcher()

	if err != nil {
		return err
	}

	if err := u.watcher.Add(u.userFile); err != nil {
		u.logger.Warn("can't watch users file", slog.String("file", u.userFile), slog.Any("error", err))
		return nil
	}

	go u.watch()

	return nil
}

func (u *UserDbRepository) watch() {
	for {
		select {
		case event, ok := <-u.watcher.Events:
			if !ok {
				return
			}

			u.logger.Debug(fmt.Sprintf("event: %v", event))

			if event.Has(fsnotify.Write) && event.Name == u.userFile {
				u.logger.Info("users file is modified, reloading")

				if err := u.loadUsersFile(); err != nil {
					u.logger.Error("error", slog.Any("error", err))
				}
			}
		case err, ok := <-u.watcher.Errors:
			if !ok {
				return
			}

			u.logger.Error("error", slog.Any("error", err))
		}
	}
}

func (u *UserDbRepository) purge(done <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			u.cache.Purge()
		}
	}
}

func (u *UserDbRepository) Stop() {
	if u.done != nil {
		close(u.done)
		u.done = nil
	}

	if u.watcher != nil {
		_ = u.watcher.Close()
	}
}

func (u *UserDbRepository) loadUsersFile() error {
	u.mx.Lock()
	defer u.mx.Unlock()

	if u.userFile == "" {
		return nil
	}

	users, err := LoadUsersFile(u.userFile)
	if err != nil {
		return err
	}

	for _, user := range users {
		existing, err := u.dbm.UserQuery().Id(user.ID).One()
		if err != nil {
			return err
		}

		if existing == nil {
			if err := u.dbm.Create(user); err != nil {
				if database.IsUnique(err) {
					u.logger.Warn("login is taken, skip user", slog.String("login", user.Login))
					continue
				}

				return err
			}

			u.cache.Invalidate(user.Login)

			continue
		}

		err = u.dbm.UserQuery().Id(user.ID).Update(map[string]any{
			"name":      user.Name,
			"role":      user.Role,
			"member_id": user.MemberID,
			"password":  user.Password,
			"disabled":  user.Disabled,
		})

		if err != nil {
			return err
		}

		u.cache.Invalidate(existing.Login)
	}

	u.logger.Info(fmt.Sprintf("loaded %d users", len(users)))

	return nil
}

func (u *UserDbRepository) CheckAuth(login, password string) bool {
	user := u.cache.Get(login)

	if user == nil || user.Disabled {
		return false
	}

	return user.CheckPassword(password)
}

func (u *UserDbRepository) Get(login string) *model.User {
	return u.cache.Get(login)
}

func (u *UserDbRepository) GetByID(id string) *model.User {
	user, err := u.dbm.UserQuery().Id(id).One()
	if err != nil {
		u.logger.Error("error get user", slog.String("id", id), slog.Any("error", err))
	}

	return user
}

func (u *UserDbRepository) List() []*model.User {
	users, err := u.dbm.UserQuery().Get()
	if err != nil {
		u.logger.Error("error list users", slog.Any("error", err))
	}

	return users
}

// Rename changes the login of a user. A taken login gives ErrUniqueViolation.
func (u *UserDbRepository) Rename(ctx context.Context, id, login string) (*model.User, error) {
	login = strings.TrimSpace(login)

	if login == "" || strings.ContainsAny(login, " \t:") {
		return nil, store.NewValidationError("username", "invalid username")
	}

	dbm := u.dbm.WithContext(ctx)

	prev, err := dbm.UserQuery().Id(id).One()
	if err != nil {
		return nil, dbError("rename user", err)
	}

	if prev == nil {
		return nil, dbError("rename user", database.ErrNoRecord)
	}

	if prev.Login == login {
		return prev, nil
	}

	if err := dbm.UserQuery().Id(id).Update(map[string]any{"login": login}); err != nil {
		return nil, dbError("rename user", err)
	}

	u.cache.Invalidate(prev.Login, login)
	u.logger.Info("user renamed", slog.String("from", prev.Login), slog.String("to", login))

	prev.Login = login

	return prev, nil
}
