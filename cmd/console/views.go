package main

import (
	"context"

	"github.com/spec-kit/invest-access/internal/client"
	"github.com/spec-kit/invest-access/internal/domain"
	"github.com/spec-kit/invest-access/internal/session"
	"github.com/spec-kit/invest-access/internal/syncer"
	"github.com/spec-kit/invest-access/internal/views"
)

// viewFetchers maps every view key to the API call that loads it.
func viewFetchers(api *client.Client, store *session.Store) map[views.Key]views.Fetcher {
	profile := func(ctx context.Context) (domain.User, error) {
		return api.GetProfile(ctx, store.Identity().Address)
	}
	return map[views.Key]views.Fetcher{
		views.OwnProfile: func(ctx context.Context) (any, error) { return profile(ctx) },
		views.KYCStatus: func(ctx context.Context) (any, error) {
			user, err := profile(ctx)
			if err != nil {
				return nil, err
			}
			return user.KYCStatus, nil
		},
		views.Marketplace:    func(ctx context.Context) (any, error) { return api.ListMarketplace(ctx) },
		views.AdminUsers:     func(ctx context.Context) (any, error) { return api.ListUsers(ctx, domain.RoleUser) },
		views.AdminAdmins:    func(ctx context.Context) (any, error) { return api.ListUsers(ctx, domain.RoleAdmin) },
		views.AdminProjects:  func(ctx context.Context) (any, error) { return api.ListProjects(ctx, "") },
		views.AdminKYCQueue:  func(ctx context.Context) (any, error) { return api.ListKYCQueue(ctx) },
		views.AdminContracts: func(ctx context.Context) (any, error) { return api.ListContracts(ctx) },
		views.AdminStats:     func(ctx context.Context) (any, error) { return api.Stats(ctx) },
		views.AdminActivity:  func(ctx context.Context) (any, error) { return api.Activity(ctx) },
	}
}

// cacheFactory builds a fresh cache holding the views kind watches. A fetch
// rejected for a bad credential ends the session.
func cacheFactory(kind syncer.Kind, fetchers map[views.Key]views.Fetcher, store *session.Store, opts views.Options) func() *views.Cache {
	return func() *views.Cache {
		cache := views.New(opts)
		for _, key := range kind.Views() {
			fetch := fetchers[key]
			if fetch == nil {
				continue
			}
			cache.Register(key, func(ctx context.Context) (any, error) {
				v, err := fetch(ctx)
				if err != nil {
					store.HandleAPIError(ctx, err)
				}
				return v, err
			})
		}
		return cache
	}
}
