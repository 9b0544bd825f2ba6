// Package assets stores the binary side of an article: the image map,
// including the cover, kept apart from the metadata record and joined by
// article id.
package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"ghostwriter/internal/core"
	"ghostwriter/internal/logger"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const manifestName = "manifest.json"

// errMissing is returned by object backends for absent objects.
var errMissing = errors.New("object not found")

// Bundle is the binary asset record of one article.
type Bundle struct {
	Images map[string]core.ImageAsset
}

// Store persists bundles keyed by article id. Get on an unknown id returns
// an empty bundle; Delete on an unknown id is a no-op.
type Store interface {
	Put(ctx context.Context, id int64, b Bundle) error
	Get(ctx context.Context, id int64) (Bundle, error)
	Delete(ctx context.Context, id int64) error
}

// objects is the minimal blob interface the filesystem and S3 backends share.
type objects interface {
	write(ctx context.Context, key string, data []byte, contentType string) error
	read(ctx context.Context, key string) ([]byte, error)
	removePrefix(ctx context.Context, prefix string) error
}

type manifestEntry struct {
	Key         string         `json:"key"`
	Kind        core.AssetKind `json:"kind"`
	File        string         `json:"file,omitempty"`
	MIMEType    string         `json:"mime_type,omitempty"`
	Instruction string         `json:"instruction,omitempty"`
}

type manifest struct {
	ArticleID int64           `json:"article_id"`
	Entries   []manifestEntry `json:"entries"`
}

// BundleStore implements Store over an object backend. Each article is a
// directory (or key prefix) holding a manifest and one object per image.
type BundleStore struct {
	objects objects
	backend string
}

var _ Store = (*BundleStore)(nil)

func prefix(id int64) string {
	return strconv.FormatInt(id, 10) + "/"
}

// Backend names the storage backend, for logs.
func (s *BundleStore) Backend() string {
	return s.backend
}

// Put replaces the bundle for id. Image objects are written before the
// manifest so a partial write never shows up as a bundle.
func (s *BundleStore) Put(ctx context.Context, id int64, b Bundle) error {
	if err := s.objects.removePrefix(ctx, prefix(id)); err != nil {
		return fmt.Errorf("failed to clear assets for %d: %w", id, err)
	}

	m := manifest{ArticleID: id}
	for key, asset := range b.Images {
		entry := manifestEntry{Key: key, Kind: asset.Kind, Instruction: asset.Instruction}
		if asset.IsImage() {
			name, mime, err := objectName(asset)
			if err != nil {
				return err
			}
			if err := s.objects.write(ctx, prefix(id)+name, asset.Data, mime); err != nil {
				return fmt.Errorf("failed to write image %s: %w", name, err)
			}
			entry.File = name
			entry.MIMEType = mime
		} else if asset.Kind == core.AssetImage {
			entry.Kind = core.AssetError
		}
		m.Entries = append(m.Entries, entry)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := s.objects.write(ctx, prefix(id)+manifestName, data, "application/json"); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	logger.Debug("Stored article assets", "article_id", id, "entries", len(m.Entries), "backend", s.backend)
	return nil
}

// Get loads the bundle for id. An image object that cannot be read comes
// back as an error entry.
func (s *BundleStore) Get(ctx context.Context, id int64) (Bundle, error) {
	b := Bundle{Images: map[string]core.ImageAsset{}}

	data, err := s.objects.read(ctx, prefix(id)+manifestName)
	if errors.Is(err, errMissing) {
		return b, nil
	}
	if err != nil {
		return b, fmt.Errorf("failed to read manifest for %d: %w", id, err)
	}

	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return b, fmt.Errorf("failed to decode manifest for %d: %w", id, err)
	}

	for _, e := range m.Entries {
		switch e.Kind {
		case core.AssetImage:
			payload, err := s.objects.read(ctx, prefix(id)+e.File)
			if err != nil {
				logger.Warn("Image asset unreadable", "article_id", id, "file", e.File, "error", err)
				b.Images[e.Key] = core.ImageError()
				continue
			}
			b.Images[e.Key] = core.ImageData(payload, e.MIMEType)
		case core.AssetScreenshot:
			b.Images[e.Key] = core.ScreenshotInstruction(e.Instruction)
		default:
			b.Images[e.Key] = core.ImageError()
		}
	}
	return b, nil
}

// Delete removes every object stored for id.
func (s *BundleStore) Delete(ctx context.Context, id int64) error {
	if err := s.objects.removePrefix(ctx, prefix(id)); err != nil {
		return fmt.Errorf("failed to delete assets for %d: %w", id, err)
	}
	return nil
}

// objectName picks a random object name with an extension sniffed from the
// payload. The sniffed MIME type wins over a declared one.
func objectName(asset core.ImageAsset) (string, string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate object name: %w", err)
	}

	ext, mime := "bin", asset.MIMEType
	if kind, err := filetype.Match(asset.Data); err == nil && kind != types.Unknown {
		ext, mime = kind.Extension, kind.MIME.Value
	}
	if mime == "" {
		mime = "application/octet-stream"
	}
	return id + "." + ext, mime, nil
}
