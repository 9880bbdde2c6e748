// Package media moves uploaded bytes into object storage and hands back the
// public URL. Nothing here knows about posts or profiles: callers decide
// which slots to fill and whether to discard assets whose owning write failed.
package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptyFile        = errors.New("media: empty file")
	ErrUnsupportedMedia = errors.New("media: unsupported content type")
)

// Kind is the family of media a slot accepts. It doubles as the key prefix.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// File is a fully buffered upload.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Asset is a stored object.
type Asset struct {
	Key string
	URL string
}

// Request asks for one file to be stored as the given kind.
type Request struct {
	Kind Kind
	File File
}

// ObjectStorage is the external service that keeps the bytes.
type ObjectStorage interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Remove(ctx context.Context, key string) error
}

// Observer is told the outcome ("success" or "failure") of every upload.
type Observer func(kind Kind, outcome string)

// Pipeline uploads files with bounded retries.
type Pipeline struct {
	storage ObjectStorage
	retries int
	backoff time.Duration
	observe Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRetries sets how many extra attempts a failed Put gets.
func WithRetries(n int) Option {
	return func(p *Pipeline) {
		if n >= 0 {
			p.retries = n
		}
	}
}

// WithBackoff sets the delay before the first retry. It doubles each attempt.
func WithBackoff(d time.Duration) Option {
	return func(p *Pipeline) { p.backoff = d }
}

// WithObserver registers fn to receive upload outcomes.
func WithObserver(fn Observer) Option {
	return func(p *Pipeline) { p.observe = fn }
}

// NewPipeline creates a Pipeline writing to storage.
func NewPipeline(storage ObjectStorage, opts ...Option) *Pipeline {
	p := &Pipeline{
		storage: storage,
		retries: 2,
		backoff: 100 * time.Millisecond,
		observe: func(Kind, string) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Validate checks that f is non-empty and its content type matches kind.
// It fills in a sniffed content type when the client sent none.
func Validate(kind Kind, f *File) error {
	if len(f.Data) == 0 {
		return ErrEmptyFile
	}
	ct := strings.TrimSpace(strings.ToLower(f.ContentType))
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(f.Data)
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	if !strings.HasPrefix(ct, string(kind)+"/") {
		return fmt.Errorf("%w: %s is not %s", ErrUnsupportedMedia, ct, kind)
	}
	f.ContentType = ct
	return nil
}

// UploadSet validates every request, then uploads them concurrently. Either
// all succeed or none are kept: on failure the assets that did land are removed.
func (p *Pipeline) UploadSet(ctx context.Context, reqs map[string]Request) (map[string]Asset, error) {
	checked := make(map[string]Request, len(reqs))
	for slot, req := range reqs {
		if err := Validate(req.Kind, &req.File); err != nil {
			return nil, fmt.Errorf("%s: %w", slot, err)
		}
		checked[slot] = req
	}

	var (
		mu     sync.Mutex
		assets = make(map[string]Asset, len(reqs))
	)
	g, gctx := errgroup.WithContext(ctx)
	for slot, req := range checked {
		slot, req := slot, req
		g.Go(func() error {
			asset, err := p.put(gctx, req.Kind, req.File)
			if err != nil {
				return fmt.Errorf("%s: %w", slot, err)
			}
			mu.Lock()
			assets[slot] = asset
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		landed := make([]Asset, 0, len(assets))
		for _, a := range assets {
			landed = append(landed, a)
		}
		p.Discard(context.WithoutCancel(ctx), landed...)
		return nil, err
	}
	return assets, nil
}

// Discard removes assets whose owning document was never written. Failures
// are logged and otherwise ignored.
func (p *Pipeline) Discard(ctx context.Context, assets ...Asset) {
	for _, a := range assets {
		if err := p.storage.Remove(ctx, a.Key); err != nil {
			log.Warn().Err(err).Str("key", a.Key).Msg("Failed to remove orphaned media")
		}
	}
}

func (p *Pipeline) put(ctx context.Context, kind Kind, f File) (Asset, error) {
	key := objectKey(kind, f)
	delay := p.backoff

	var err error
	for attempt := 0; attempt <= p.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				p.observe(kind, "failure")
				return Asset{}, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		var url string
		url, err = p.storage.Put(ctx, key, f.ContentType, f.Data)
		if err == nil {
			p.observe(kind, "success")
			return Asset{Key: key, URL: url}, nil
		}
		log.Warn().Err(err).Str("key", key).Int("attempt", attempt+1).Msg("Media upload failed")
	}
	p.observe(kind, "failure")
	return Asset{}, fmt.Errorf("upload %s: %w", key, err)
}

func objectKey(kind Kind, f File) string {
	ext := strings.ToLower(filepath.Ext(f.Name))
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(f.ContentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return string(kind) + "/" + ksuid.New().String() + ext
}
