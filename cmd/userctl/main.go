package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rescuerespond/rescuerespond/internal/repository"
	"github.com/rescuerespond/rescuerespond/pkg/model"
)

type options struct {
	login    string
	password string
	name     string
	role     string
	memberID string
	disable  bool
	enable   bool
}

// apply adds or updates the user named by o.login. An empty password keeps
// the current hash of an existing user.
func apply(users []*model.User, o options, hash func(string) (string, error)) ([]*model.User, error) {
	var u *model.User

	for _, x := range users {
		if x.Login == o.login {
			u = x
			break
		}
	}

	if u == nil {
		if o.password == "" {
			return nil, fmt.Errorf("password is required for a new user")
		}

		u = &model.User{ID: model.UserID(o.login), Login: o.login, Role: model.RoleResponder}
		users = append(users, u)
	}

	if o.password != "" {
		h, err := hash(o.password)
		if err != nil {
			return nil, err
		}

		u.Password = h
	}

	if o.name != "" {
		u.Name = o.name
	}

	if o.memberID != "" {
		u.MemberID = o.memberID
	}

	switch model.Role(o.role) {
	case "":
	case model.RoleAdmin, model.RoleResponder:
		u.Role = model.Role(o.role)
	default:
		return nil, fmt.Errorf("unknown role %q", o.role)
	}

	if o.disable {
		u.Disabled = true
	}

	if o.enable {
		u.Disabled = false
	}

	return users, nil
}

func bcryptHash(password string) (string, error) {
	u := new(model.User)

	if err := u.SetPassword(password); err != nil {
		return "", err
	}

	return u.Password, nil
}

func readPassword(in io.Reader, out io.Writer) (string, error) {
	reader := bufio.NewReader(in)

	fmt.Fprint(out, "password: ")
	p1, _ := reader.ReadString('\n')
	fmt.Fprint(out, "repeat password: ")
	p2, _ := reader.ReadString('\n')

	if p1 != p2 {
		return "", fmt.Errorf("password mismatch")
	}

	return strings.TrimRight(p1, "\r\n"), nil
}

func list(w io.Writer, users []*model.User) {
	for _, u := range users {
		state := ""
		if u.Disabled {
			state = "disabled"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.Login, u.Name, u.Role, u.MemberID, state)
	}
}

func main() {
	var o options

	file := flag.String("file", "users.yml", "users file")
	flag.StringVar(&o.login, "user", "", "login")
	flag.StringVar(&o.password, "password", "", "password")
	flag.StringVar(&o.name, "name", "", "display name")
	flag.StringVar(&o.role, "role", "", "role, Admin or Responder")
	flag.StringVar(&o.memberID, "member", "", "member id")
	flag.BoolVar(&o.disable, "disable", false, "disable user")
	flag.BoolVar(&o.enable, "enable", false, "enable user")
	ask := flag.Bool("ask", false, "read password from stdin")

	flag.Parse()

	users, err := repository.LoadUsersFile(*file)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	if o.login == "" {
		list(os.Stdout, users)
		return
	}

	if *ask {
		if o.password, err = readPassword(os.Stdin, os.Stdout); err != nil {
			fmt.Println("\n" + err.Error())
			os.Exit(1)
		}
	}

	if users, err = apply(users, o, bcryptHash); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	if err := repository.SaveUsersFile(*file, users); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}
