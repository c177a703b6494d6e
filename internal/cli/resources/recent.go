package resources

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pagecraft-dev/pagecraft/internal/cli/client"
)

// RecentAPI is the part of the client the recently-used hook uses
type RecentAPI interface {
	ListRecent(ctx context.Context, kind string, limit int) ([]client.RecentItem, error)
	RecordRecent(ctx context.Context, kind, content string) (*client.RecentItem, error)
}

// Recent manages recently used items, e.g. skills or tags offered as suggestions
type Recent struct {
	state
	api RecentAPI
}

func NewRecent(api RecentAPI, logger zerolog.Logger) *Recent {
	return &Recent{state: state{logger: logger}, api: api}
}

func (r *Recent) List(ctx context.Context, kind string, limit int) Result[[]client.RecentItem] {
	return run(ctx, &r.state, "list_recent", "", func(ctx context.Context) ([]client.RecentItem, error) {
		return r.api.ListRecent(ctx, kind, limit)
	})
}

func (r *Recent) Record(ctx context.Context, kind, content string) Result[*client.RecentItem] {
	return run(ctx, &r.state, "record_recent", "", func(ctx context.Context) (*client.RecentItem, error) {
		return r.api.RecordRecent(ctx, kind, content)
	})
}
