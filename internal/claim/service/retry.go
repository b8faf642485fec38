package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"offerhub/internal/business"
	"offerhub/internal/claim"
	"offerhub/internal/metrics"
	"offerhub/internal/offer"
	"offerhub/internal/user"
)

const (
	retryDelay = 50 * time.Millisecond
	maxRetries = 1
)

// permanent - ошибки, которые повтор не исправит
func permanent(err error) bool {
	return claim.IsDomain(err) ||
		errors.Is(err, claim.ErrTokenTaken) ||
		errors.Is(err, offer.ErrNotFound) ||
		errors.Is(err, business.ErrNotFound) ||
		errors.Is(err, user.ErrNotFound) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// withRetry повторяет fn один раз при сбое хранилища. Если и повтор не помог,
// ошибка оборачивается в ErrInternal.
func withRetry(ctx context.Context, log *logrus.Entry, op string, fn func() error) error {
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), maxRetries), ctx)

	err := backoff.RetryNotify(func() error {
		err := fn()
		if err != nil && permanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, func(err error, wait time.Duration) {
		metrics.StoreRetriesTotal.WithLabelValues(op).Inc()
		log.WithError(err).WithField("operation", op).Warn("store operation failed, retrying")
	})

	if err == nil || permanent(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, claim.ErrInternal, err)
}
