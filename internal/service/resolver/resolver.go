package resolver

import (
	"context"

	"github.com/kapu/kfp-startpage/internal/constants"
	"github.com/kapu/kfp-startpage/internal/domain"
	"github.com/kapu/kfp-startpage/internal/kfp"
	"github.com/kapu/kfp-startpage/internal/routes"
	"github.com/kapu/kfp-startpage/pkg/errors"
	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// LinkResolver turns sample pipeline names into detail-page links.
type LinkResolver struct {
	lister   kfp.PipelineLister
	pageSize int
	logger   *zap.Logger
}

func NewLinkResolver(lister kfp.PipelineLister, logger *zap.Logger) *LinkResolver {
	return &LinkResolver{
		lister:   lister,
		pageSize: constants.APIConfig.LookupPageSize,
		logger:   logger,
	}
}

// Resolve returns one link per name, in input order. All lookups run
// concurrently and Resolve returns only after every one has settled. Names
// without exactly one match get the pipeline list link; no error is returned.
func (r *LinkResolver) Resolve(ctx context.Context, names []string) []string {
	// Duplicate names share a request within this cycle only; every cycle
	// issues its own lookups.
	var group singleflight.Group
	mapper := iter.Mapper[string, string]{MaxGoroutines: len(names)}
	ids := mapper.Map(names, func(name *string) string {
		return r.lookup(ctx, &group, *name)
	})

	links := make([]string, len(ids))
	resolved := 0
	for i, id := range ids {
		if id != "" {
			resolved++
		}
		links[i] = routes.PipelineLink(id)
	}

	r.logger.Info("Sample pipeline links resolved",
		zap.Int("total", len(names)),
		zap.Int("resolved", resolved),
	)
	return links
}

// lookup returns the id of the single pipeline called name, or "" when the
// lookup is inconclusive.
func (r *LinkResolver) lookup(ctx context.Context, group *singleflight.Group, name string) string {
	v, _, _ := group.Do(name, func() (interface{}, error) {
		id, err := r.findPipelineID(ctx, name)
		if err != nil {
			r.logger.Debug("Pipeline lookup inconclusive", zap.String("name", name), zap.Error(err))
			return "", nil
		}
		return id, nil
	})
	id, _ := v.(string)
	return id
}

func (r *LinkResolver) findPipelineID(ctx context.Context, name string) (string, error) {
	filter := domain.NameEquals(name)
	list, err := r.lister.ListPipelines(ctx, kfp.ListPipelinesRequest{
		PageSize: r.pageSize,
		Filter:   &filter,
	})
	if err != nil {
		return "", errors.NewLookupInconclusiveError(name, errors.ReasonFailed, 0, err)
	}
	if list == nil || len(list.Pipelines) == 0 {
		return "", errors.NewLookupInconclusiveError(name, errors.ReasonEmpty, 0, nil)
	}
	// Do not accept ambiguous results.
	if len(list.Pipelines) != 1 {
		return "", errors.NewLookupInconclusiveError(name, errors.ReasonAmbiguous, len(list.Pipelines), nil)
	}
	id := list.Pipelines[0].PipelineID
	if id == "" {
		return "", errors.NewLookupInconclusiveError(name, errors.ReasonMissingID, 1, nil)
	}
	return id, nil
}
