package audithttp

import (
	"context"

	"golang.org/x/sync/singleflight"
)

var exportGroup singleflight.Group

func singleflightExport(ctx context.Context, key string, fn func(context.Context) ([]byte, error)) ([]byte, error, bool) {
	resultChan := exportGroup.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		data, _ := res.Val.([]byte)
		return data, res.Err, res.Shared
	}
}
