// Package types - то, что корневая команда передает подкомандам.
package types

import (
	"context"
	"fmt"

	"todoctl/internal/app/client"
)

type ctxKey string

const (
	ClientAppKey ctxKey = "app"
	OptionsKey   ctxKey = "options"
)

// Options - глобальные флаги, нужные подкомандам
type Options struct {
	JSON bool
}

// AppFrom достает приложение, созданное в PersistentPreRunE.
func AppFrom(ctx context.Context) (*client.App, error) {
	app, ok := ctx.Value(ClientAppKey).(*client.App)
	if !ok || app == nil {
		return nil, fmt.Errorf("приложение не инициализировано")
	}
	return app, nil
}

func OptionsFrom(ctx context.Context) Options {
	opts, _ := ctx.Value(OptionsKey).(Options)
	return opts
}
