package render

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// renderers holds one pool of glamour renderers per normalized option set.
// A TermRenderer must not serve concurrent Render calls, so every call
// borrows its own.
var renderers struct {
	mu    sync.Mutex
	pools map[Options]*sync.Pool
}

// normalize maps options that render identically onto one key
func normalize(opts Options) Options {
	if opts.Width <= 0 {
		opts.Width = DefaultOptions().Width
	}
	return opts.WithTheme(opts.Theme)
}

func poolFor(opts Options) *sync.Pool {
	renderers.mu.Lock()
	defer renderers.mu.Unlock()

	if renderers.pools == nil {
		renderers.pools = make(map[Options]*sync.Pool)
	}
	pool, ok := renderers.pools[opts]
	if !ok {
		pool = &sync.Pool{}
		renderers.pools[opts] = pool
	}
	return pool
}

// borrow returns a renderer for opts and the func that hands it back
func borrow(opts Options) (*glamour.TermRenderer, func(), error) {
	opts = normalize(opts)
	pool := poolFor(opts)

	r, ok := pool.Get().(*glamour.TermRenderer)
	if !ok {
		var err error
		if r, err = newRenderer(opts); err != nil {
			return nil, nil, err
		}
	}
	return r, func() { pool.Put(r) }, nil
}

func newRenderer(opts Options) (*glamour.TermRenderer, error) {
	ropts := []glamour.TermRendererOption{
		glamour.WithStandardStyle(opts.Theme),
		glamour.WithWordWrap(opts.Width),
		glamour.WithTableWrap(opts.TableWrap),
		glamour.WithInlineTableLinks(opts.InlineTableLinks),
	}
	if opts.EnableEmoji {
		ropts = append(ropts, glamour.WithEmoji())
	}
	if opts.PreserveNewLines {
		ropts = append(ropts, glamour.WithPreservedNewLines())
	}
	return glamour.NewTermRenderer(ropts...)
}

// ClearCache drops every pooled renderer
func ClearCache() {
	renderers.mu.Lock()
	renderers.pools = nil
	renderers.mu.Unlock()
}

// CacheSize returns the number of option sets with a pool
func CacheSize() int {
	renderers.mu.Lock()
	defer renderers.mu.Unlock()
	return len(renderers.pools)
}
