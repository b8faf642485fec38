package user

import (
	"errors"
	"strings"
)

var ErrNotFound = errors.New("user not found")

// User - покупатель. Аккаунты ведет внешний identity provider,
// здесь только профиль для экрана проверки у мерчанта.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (u *User) DisplayName() string {
	if u == nil {
		return "Customer"
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return "Customer"
	}
	return name
}
