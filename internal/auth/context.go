package auth

import (
	"context"

	"github.com/google/uuid"
)

type customerIDKey struct{}

func ContextWithCustomerID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, customerIDKey{}, id)
}

func CustomerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(customerIDKey{}).(uuid.UUID)
	return id, ok
}
