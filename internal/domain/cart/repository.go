// Package cart exposes the cart storage collaborator consumed by checkout.
// The cart itself lives outside this core; only clearing it after a placed
// order matters here.
package cart

import "context"

type Repository interface {
	Clear(ctx context.Context, userID string) error
}
