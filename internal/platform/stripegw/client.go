package stripegw

import (
	"context"
	"errors"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/fx"

	cfgpkg "github.com/vibestack/billing/pkg/config"
)

// Client wraps the Stripe SDK client. It is constructed once at startup and
// injected wherever gateway lookups are needed; nothing reads the SDK's
// package-level key.
type Client struct {
	api *client.API
}

func New(cfg *cfgpkg.Config) (*Client, error) {
	if cfg.Stripe.SecretKey == "" {
		return nil, errors.New("stripe secret key is not configured")
	}
	api := &client.API{}
	api.Init(cfg.Stripe.SecretKey, nil)
	return &Client{api: api}, nil
}

// GetSubscription fetches full subscription detail by id, with the line item
// prices expanded so plan classification can inspect them.
func (c *Client) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddExpand("items.data.price")
	return c.api.Subscriptions.Get(id, params)
}

var Module = fx.Options(
	fx.Provide(New),
)
