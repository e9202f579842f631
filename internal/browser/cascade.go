package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNoMatch is returned by strategies whose target element is absent.
var ErrNoMatch = errors.New("no matching element")

// Strategy is one way of reaching a goal on an uncontrolled page.
type Strategy struct {
	Name string
	Run  func(ctx context.Context) error
}

// FirstSuccess runs strategies in order and stops at the first one that
// returns nil. It returns the winner's name, or every failure joined.
func FirstSuccess(ctx context.Context, logger *slog.Logger, strategies ...Strategy) (string, error) {
	var errs []error
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		err := s.Run(ctx)
		if err == nil {
			logger.Debug("strategy succeeded", slog.String("strategy", s.Name))
			return s.Name, nil
		}
		logger.Debug("strategy failed", slog.String("strategy", s.Name), slog.String("error", err.Error()))
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	if len(errs) == 0 {
		return "", errors.New("no strategies")
	}
	return "", errors.Join(errs...)
}

// ClickFirst clicks the first selector in selectors that exists in scope.
func ClickFirst(scope Scope, selectors []string, timeout time.Duration) (string, error) {
	for _, sel := range selectors {
		ok, err := scope.Exists(sel)
		if err != nil || !ok {
			continue
		}
		if err := scope.Click(sel, timeout); err != nil {
			continue
		}
		return sel, nil
	}
	return "", ErrNoMatch
}

// FirstText returns the text of the first selector that exists in scope.
func FirstText(scope Scope, selectors []string) (string, error) {
	for _, sel := range selectors {
		ok, err := scope.Exists(sel)
		if err != nil || !ok {
			continue
		}
		text, err := scope.Text(sel)
		if err != nil {
			continue
		}
		return text, nil
	}
	return "", ErrNoMatch
}
