package token

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"regexp"
	"time"
)

const (
	letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"

	// Length токена: две буквы, две цифры, две буквы, две цифры
	Length             = 8
	DefaultMaxAttempts = 10
)

var (
	ErrGenerationExhausted = errors.New("could not allocate a unique claim token")

	format = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z]{2}[0-9]{2}$`)
	layout = [Length]string{letters, letters, digits, digits, letters, letters, digits, digits}
)

// ExistsFunc сообщает, занят ли токен в хранилище
type ExistsFunc func(ctx context.Context, token string) (bool, error)

type Generator struct {
	rand io.Reader
	now  func() time.Time

	// OnCollision вызывается на каждый занятый кандидат
	OnCollision func()
}

func NewGenerator() *Generator {
	return New(rand.Reader, time.Now)
}

func New(r io.Reader, now func() time.Time) *Generator {
	return &Generator{rand: r, now: now}
}

// Generate выдает случайный токен формата LLDDLLDD.
// rand.Int выбирает символ без смещения по модулю.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, Length)
	for i, alphabet := range layout {
		n, err := rand.Int(g.rand, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		buf[i] = alphabet[n.Int64()]
	}
	return string(buf), nil
}

// EnsureUnique генерирует токены, пока exists не вернет false. После maxAttempts
// неудач пробует один токен, выведенный из текущего времени.
func (g *Generator) EnsureUnique(ctx context.Context, exists ExistsFunc, maxAttempts int) (string, error) {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}

	for i := 0; i < maxAttempts; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate, err := g.Generate()
		if err != nil {
			return "", err
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		g.collision()
	}

	fallback := g.fallback()
	taken, err := exists(ctx, fallback)
	if err != nil {
		return "", err
	}
	if taken {
		g.collision()
		return "", ErrGenerationExhausted
	}
	return fallback, nil
}

func (g *Generator) fallback() string {
	n := uint64(g.now().UnixNano())
	buf := make([]byte, Length)
	for i, alphabet := range layout {
		base := uint64(len(alphabet))
		buf[i] = alphabet[n%base]
		n /= base
	}
	return string(buf)
}

func (g *Generator) collision() {
	if g.OnCollision != nil {
		g.OnCollision()
	}
}

func ValidateFormat(s string) bool {
	return format.MatchString(s)
}
