package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/pdqflow/internal/node"
	"github.com/aescanero/pdqflow/pkg/adapters/events/memory"
	"github.com/aescanero/pdqflow/pkg/domain"
	"github.com/aescanero/pdqflow/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Builder assembles a Graph.
type Builder struct {
	g *Graph
}

// NewBuilder starts a graph created by creator.
func NewBuilder(creator string) *Builder {
	return &Builder{g: &Graph{
		creator: creator,
		nodes:   make(map[string]*node.Node),
		logger:  zap.NewNop(),
		events:  memory.NewBus[domain.GraphEvent](),
		now:     time.Now,
	}}
}

// ID sets an explicit id.
func (b *Builder) ID(id string) *Builder { b.g.id = id; return b }

// Name sets the name.
func (b *Builder) Name(name string) *Builder { b.g.name = name; return b }

// Owner sets the owner.
func (b *Builder) Owner(owner string) *Builder { b.g.owner = owner; return b }

// Shared sets the shared flag.
func (b *Builder) Shared(shared bool) *Builder { b.g.shared = shared; return b }

// Description sets the description.
func (b *Builder) Description(d string) *Builder { b.g.description = d; return b }

// UserContent sets the editor content blob.
func (b *Builder) UserContent(c string) *Builder { b.g.userContent = c; return b }

// CreationTime sets the creation time.
func (b *Builder) CreationTime(t time.Time) *Builder { b.g.creationTime = t; return b }

// LastSavedTime sets the last save time.
func (b *Builder) LastSavedTime(t *time.Time) *Builder { b.g.lastSavedTime = t; return b }

// Repository persists the graph through repo.
func (b *Builder) Repository(repo ports.GraphRepository) *Builder { b.g.repo = repo; return b }

// Logger sets the logger.
func (b *Builder) Logger(logger *zap.Logger) *Builder { b.g.logger = logger; return b }

// Clock replaces the time source.
func (b *Builder) Clock(now func() time.Time) *Builder { b.g.now = now; return b }

// Build fills in defaults and, when a repository is set, persists the
// graph unless a snapshot with its id already exists.
func (b *Builder) Build(ctx context.Context) (*Graph, error) {
	g := b.build()

	if g.repo == nil {
		return g, nil
	}
	_, err := g.repo.Load(ctx, g.id)
	switch {
	case err == nil:
		return g, nil
	case errors.Is(err, ports.ErrGraphNotFound):
		if err := g.Save(ctx); err != nil {
			return nil, err
		}
		g.announce(domain.EventGraphCreated, "", "")
		return g, nil
	default:
		return nil, fmt.Errorf("failed to check graph %s: %w", g.id, err)
	}
}

func (b *Builder) build() *Graph {
	g := b.g
	if g.id == "" {
		g.id = uuid.New().String()
	}
	if g.name == "" {
		g.name = DefaultName
	}
	if g.owner == "" {
		g.owner = g.creator
	}
	if g.creationTime.IsZero() {
		g.creationTime = g.now().UTC()
	}
	g.logger = g.logger.With(zap.String("graph_id", g.id))
	return g
}
