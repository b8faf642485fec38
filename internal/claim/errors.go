package claim

import (
	"errors"
	"fmt"
	"time"

	"offerhub/internal/token"
)

var (
	ErrValidation               = errors.New("invalid request")
	ErrInvalidIdentifier        = errors.New("claim identifier is empty")
	ErrNotFound                 = errors.New("not found")
	ErrNotStarted               = errors.New("offer has not started yet")
	ErrExpired                  = errors.New("offer has expired")
	ErrCapacityExhausted        = errors.New("offer has reached its claim limit")
	ErrAlreadyClaimed           = errors.New("offer already claimed")
	ErrAlreadyRedeemed          = errors.New("claim already redeemed")
	ErrWrongBusiness            = errors.New("claim does not belong to this business")
	ErrOfferExpired             = errors.New("offer expired")
	ErrNotInStore               = errors.New("code is only available for in-store claims")
	ErrTokenTaken               = errors.New("claim token already in use")
	ErrTokenGenerationExhausted = token.ErrGenerationExhausted
	ErrInternal                 = errors.New("internal error")
)

// BoundaryError - нарушение временного окна оффера с датой границы
type BoundaryError struct {
	Err error
	At  time.Time
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("%v (boundary %s)", e.Err, e.At.Format(time.RFC3339))
}

func (e *BoundaryError) Unwrap() error { return e.Err }

// RedeemedError несет данные первого погашения
type RedeemedError struct {
	At    time.Time
	Notes string
}

func (e *RedeemedError) Error() string {
	return fmt.Sprintf("%v at %s", ErrAlreadyRedeemed, e.At.Format(time.RFC3339))
}

func (e *RedeemedError) Unwrap() error { return ErrAlreadyRedeemed }

// Code переводит ошибку в код для API
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotInStore):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrInvalidIdentifier):
		return "INVALID_IDENTIFIER"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrNotStarted):
		return "NOT_STARTED"
	case errors.Is(err, ErrExpired):
		return "EXPIRED"
	case errors.Is(err, ErrCapacityExhausted):
		return "CAPACITY_EXHAUSTED"
	case errors.Is(err, ErrAlreadyClaimed):
		return "ALREADY_CLAIMED"
	case errors.Is(err, ErrAlreadyRedeemed):
		return "ALREADY_REDEEMED"
	case errors.Is(err, ErrWrongBusiness):
		return "WRONG_BUSINESS"
	case errors.Is(err, ErrOfferExpired):
		return "OFFER_EXPIRED"
	case errors.Is(err, ErrTokenGenerationExhausted):
		return "TOKEN_GENERATION_EXHAUSTED"
	}
	return "INTERNAL_ERROR"
}

// IsDomain - ошибка бизнес-правила, а не сбой хранилища; такие не ретраим
func IsDomain(err error) bool {
	return Code(err) != "INTERNAL_ERROR"
}
