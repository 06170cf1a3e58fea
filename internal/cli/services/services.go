// Package services holds one facade per remote resource. Each method maps to
// exactly one path and verb of the banking API and returns the decoded body;
// errors from the client are returned unchanged.
package services

import (
	"context"
	"net/url"
	"strconv"

	"github.com/bankctl-dev/bankctl/internal/cli/client"
)

// TokenSource returns the bearer token to attach to a request. It is called
// once per request, at the moment the request is built.
type TokenSource func() string

// NoToken is a TokenSource for anonymous calls
func NoToken() string { return "" }

type base struct {
	client *client.Client
	token  TokenSource
}

func newBase(c *client.Client, token TokenSource) base {
	if token == nil {
		token = NoToken
	}
	return base{client: c, token: token}
}

func (b base) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	return b.client.Do(ctx, &client.Request{
		Method: method,
		Path:   path,
		Query:  query,
		Body:   body,
		Token:  b.token(),
	}, out)
}

func (b base) doWithToken(ctx context.Context, token, method, path string, body, out any) error {
	return b.client.Do(ctx, &client.Request{
		Method: method,
		Path:   path,
		Body:   body,
		Token:  token,
	}, out)
}

func limitQuery(limit int) url.Values {
	return url.Values{"limit": {strconv.Itoa(limit)}}
}

// Services bundles every facade over one client and token source
type Services struct {
	Auth         *Auth
	Wallets      *Wallets
	Transactions *Transactions
	Support      *Support
	Admin        *Admin
	Users        *Users
	TwoFactor    *TwoFactor
	LoginHistory *LoginHistory
	Blog         *Blog
	Data         *Data
}

// New wires all facades
func New(c *client.Client, token TokenSource) *Services {
	return &Services{
		Auth:         NewAuth(c, token),
		Wallets:      &Wallets{newBase(c, token)},
		Transactions: &Transactions{newBase(c, token)},
		Support:      &Support{newBase(c, token)},
		Admin:        &Admin{newBase(c, token)},
		Users:        &Users{newBase(c, token)},
		TwoFactor:    &TwoFactor{newBase(c, token)},
		LoginHistory: &LoginHistory{newBase(c, token)},
		Blog:         NewBlog(c, token),
		Data:         &Data{newBase(c, token)},
	}
}
