package view

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kapu/kfp-startpage/internal/constants"
	"github.com/kapu/kfp-startpage/internal/domain"
	"github.com/kapu/kfp-startpage/internal/samples"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

var fallbackLink = constants.Routes.Fallback

// LinkResolver resolves sample names to links, one per name in input order.
type LinkResolver interface {
	Resolve(ctx context.Context, names []string) []string
}

// Shell is the page chrome hosting the Getting Started page.
type Shell interface {
	SetToolbar(state domain.ToolbarState)
}

// Page holds the Getting Started view state. It starts Unresolved with every
// link pointing at the pipeline list and moves to Resolved once per mount or
// refresh, after all lookups of that cycle have settled.
type Page struct {
	catalog  *samples.Catalog
	resolver LinkResolver
	renderer *Renderer
	logger   *zap.Logger

	mu          sync.RWMutex
	snapshot    domain.Snapshot
	subscribers map[int]chan domain.Snapshot
	nextSubID   int

	started atomic.Uint64
	tasks   conc.WaitGroup
}

func NewPage(catalog *samples.Catalog, resolver LinkResolver, logger *zap.Logger) *Page {
	links := make([]string, len(catalog.Names))
	for i := range links {
		links[i] = fallbackLink
	}
	return &Page{
		catalog:  catalog,
		resolver: resolver,
		renderer: NewRenderer(),
		logger:   logger,
		snapshot: domain.Snapshot{
			State: domain.PageStateUnresolved,
			Links: links,
		},
		subscribers: make(map[int]chan domain.Snapshot),
	}
}

// Toolbar is the chrome state declared by the page: title, no breadcrumbs and
// a refresh action.
func (p *Page) Toolbar() domain.ToolbarState {
	return domain.ToolbarState{
		PageTitle:   constants.PageConfig.Title,
		Breadcrumbs: []domain.Breadcrumb{},
		Actions: map[string]domain.ToolbarAction{
			constants.PageConfig.RefreshID: {
				ID:      constants.PageConfig.RefreshID,
				Title:   constants.PageConfig.RefreshTitle,
				Tooltip: constants.PageConfig.RefreshHint,
				Icon:    constants.PageConfig.RefreshIcon,
			},
		},
	}
}

// Mount hands the toolbar to shell and starts the first resolution cycle in
// the background. Wait blocks until it finishes.
func (p *Page) Mount(ctx context.Context, shell Shell) {
	if shell != nil {
		shell.SetToolbar(p.Toolbar())
	}
	p.tasks.Go(func() {
		p.Refresh(ctx)
	})
}

func (p *Page) Wait() {
	p.tasks.Wait()
}

// Refresh runs one resolution cycle and returns the state after it. When
// cycles overlap, a cycle that started before the last applied one is
// discarded, so the most recently started cycle wins.
func (p *Page) Refresh(ctx context.Context) domain.Snapshot {
	generation := p.started.Add(1)
	links := p.resolver.Resolve(ctx, p.catalog.Names)

	p.mu.Lock()
	defer p.mu.Unlock()

	if generation < p.snapshot.Generation {
		p.logger.Debug("Discarding stale resolution cycle",
			zap.Uint64("generation", generation),
			zap.Uint64("applied", p.snapshot.Generation),
		)
		return p.copySnapshotLocked()
	}

	p.snapshot = domain.Snapshot{
		State:      domain.PageStateResolved,
		Links:      links,
		Generation: generation,
		ResolvedAt: time.Now().UTC(),
	}
	snap := p.copySnapshotLocked()
	p.publishLocked(snap)
	return snap
}

func (p *Page) Snapshot() domain.Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.copySnapshotLocked()
}

// Markdown returns the document for snap with its links substituted.
func (p *Page) Markdown(snap domain.Snapshot) (string, error) {
	return Document(snap.Links, p.catalog.Topics)
}

// HTML renders the document for snap.
func (p *Page) HTML(snap domain.Snapshot) (string, error) {
	md, err := p.Markdown(snap)
	if err != nil {
		return "", err
	}
	return p.renderer.Render(md), nil
}

// Subscribe returns a channel receiving every later state transition. Slow
// readers only see the newest snapshot. The returned func unsubscribes.
func (p *Page) Subscribe() (<-chan domain.Snapshot, func()) {
	ch := make(chan domain.Snapshot, constants.WebSocketConfig.SubscriberBuffer)

	p.mu.Lock()
	id := p.nextSubID
	p.nextSubID++
	p.subscribers[id] = ch
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subscribers, id)
			p.mu.Unlock()
			close(ch)
		})
	}
}

func (p *Page) publishLocked(snap domain.Snapshot) {
	for _, ch := range p.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (p *Page) copySnapshotLocked() domain.Snapshot {
	snap := p.snapshot
	snap.Links = append([]string(nil), p.snapshot.Links...)
	return snap
}
