package composables

import (
	"context"
	"errors"

	"github.com/univault/univault/pkg/constants"
)

var ErrNoUser = errors.New("no user found in context")

// Principal is the authenticated actor as the audit engine sees it. Domain
// user aggregates implement it; the engine only ever copies these values into
// records, never holds on to the principal itself.
type Principal interface {
	ID() uint
	Email() string
	Role() string
	FullName() string
	IsElevated() bool
}

func WithUser(ctx context.Context, user Principal) context.Context {
	return context.WithValue(ctx, constants.UserKey, user)
}

func UseUser(ctx context.Context) (Principal, error) {
	user, ok := ctx.Value(constants.UserKey).(Principal)
	if !ok || user == nil {
		return nil, ErrNoUser
	}
	return user, nil
}
