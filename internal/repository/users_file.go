package repository

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rescuerespond/rescuerespond/pkg/model"
)

// LoadUsersFile reads the users yaml file. A missing file gives no users.
func LoadUsersFile(path string) ([]*model.User, error) {
	dat, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, err
	}

	users := make([]*model.User, 0)

	if err := yaml.Unmarshal(dat, &users); err != nil {
		return nil, err
	}

	res := users[:0]

	for _, u := range users {
		if u == nil || u.Login == "" {
			continue
		}

		if u.ID == "" {
			u.ID = model.UserID(u.Login)
		}

		if u.Role == "" {
			u.Role = model.RoleResponder
		}

		res = append(res, u)
	}

	return res, nil
}

func SaveUsersFile(path string, users []*model.User) error {
	dat, err := yaml.Marshal(users)
	if err != nil {
		return err
	}

	return os.WriteFile(path, dat, 0o600)
}
