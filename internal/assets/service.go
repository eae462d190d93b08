package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"portfolio-backend/internal/profile"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/storage/object"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/shared/util"
)

// sniffLen is how much of the body is inspected before anything is stored.
const sniffLen = 3072

// DefaultSweepGrace protects objects from in-flight uploads in other processes.
const DefaultSweepGrace = 10 * time.Minute

// Service stores profile assets and keeps the profile's references in step.
type Service struct {
	Profiles profile.Repo
	Store    object.Store
	Limits   Limits

	now   func() time.Time
	rand  func() int64
	locks keyedMutex
}

// NewService constructs a Service. Zero limits fall back to DefaultLimits.
func NewService(profiles profile.Repo, store object.Store, limits Limits) *Service {
	def := DefaultLimits()
	if limits.Image <= 0 {
		limits.Image = def.Image
	}
	if limits.Resume <= 0 {
		limits.Resume = def.Resume
	}
	return &Service{
		Profiles: profiles,
		Store:    store,
		Limits:   limits,
		now:      func() time.Time { return time.Now().UTC() },
		rand:     func() int64 { return rand.Int64N(1_000_000_000) },
	}
}

// Upload validates and stores a new asset, points the profile at it and then
// removes the asset it replaced. A failure never leaves the profile
// referencing a missing object.
func (s *Service) Upload(ctx context.Context, in UploadInput) (UploadResult, error) {
	if in.Body == nil {
		return UploadResult{}, s.reject(ErrNoFile)
	}
	if !in.Kind.accepts(in.ContentType) {
		return UploadResult{}, s.reject(ErrInvalidFileType)
	}
	limit := s.Limits.For(in.Kind)
	if in.Size > limit {
		return UploadResult{}, s.reject(ErrFileTooLarge)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(in.Body, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return UploadResult{}, fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return UploadResult{}, s.reject(ErrNoFile)
	}
	head = head[:n]
	detected := mimetype.Detect(head)
	if !in.Kind.accepts(detected.String()) {
		telemetry.Warn("asset.sniff_mismatch", map[string]any{
			"assetKind": string(in.Kind),
			"declared":  in.ContentType,
			"detected":  detected.String(),
		})
		return UploadResult{}, s.reject(ErrInvalidFileType)
	}
	if int64(n) > limit {
		return UploadResult{}, s.reject(ErrFileTooLarge)
	}

	unlock := s.locks.lock(profile.DefaultID + "/" + string(in.Kind))
	defer unlock()

	key := s.newKey(in.Kind, in.Filename, detected)
	body := io.Reader(&limitReader{r: io.MultiReader(bytes.NewReader(head), in.Body), max: limit})
	var pdfBuf *bytes.Buffer
	if in.Kind == KindResume {
		pdfBuf = &bytes.Buffer{}
		body = io.TeeReader(body, pdfBuf)
	}

	mediaType := detected.String()
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	size, err := s.Store.Put(ctx, key, mediaType, body)
	if err != nil {
		s.cleanup(key)
		if errors.Is(err, ErrFileTooLarge) {
			return UploadResult{}, s.reject(ErrFileTooLarge)
		}
		return UploadResult{}, fmt.Errorf("store %s: %w", key, err)
	}

	asset := profile.Asset{
		Key:          key,
		MimeType:     mediaType,
		SizeBytes:    size,
		OriginalName: util.SanitizeFileName(in.Filename),
		UploadedAt:   s.now(),
	}
	if pdfBuf != nil {
		pages, err := pdfPages(pdfBuf.Bytes())
		if err != nil {
			telemetry.Warn("asset.pdf_inspect_failed", map[string]any{"key": key, "error": err})
		}
		asset.Pages = pages
	}

	var previous profile.Asset
	_, err = s.Profiles.Update(ctx, profile.DefaultID, func(p *profile.Profile) error {
		slot := in.Kind.slot(p)
		previous = *slot
		*slot = asset
		return nil
	})
	if err != nil {
		s.cleanup(key)
		return UploadResult{}, fmt.Errorf("save %s reference: %w", in.Kind, err)
	}

	if !previous.Empty() && previous.Key != key {
		s.removeStale(ctx, in.Kind, previous.Key)
	}

	metrics.IncAssetUpload(string(in.Kind))
	metrics.ObserveAssetBytes(size)
	telemetry.Info("asset.uploaded", map[string]any{
		"assetKind": string(in.Kind),
		"key":       key,
		"sizeBytes": size,
		"replaced":  previous.Key,
	})

	return UploadResult{
		Reference:  asset.Reference(in.Kind.Path()),
		StoredName: asset.StoredName(),
		Asset:      asset,
	}, nil
}

// Delete clears the kind's reference and removes the stored object. The
// reference is cleared first, so a failed object delete only orphans bytes.
func (s *Service) Delete(ctx context.Context, kind Kind) error {
	unlock := s.locks.lock(profile.DefaultID + "/" + string(kind))
	defer unlock()

	var removed profile.Asset
	_, err := s.Profiles.Update(ctx, profile.DefaultID, func(p *profile.Profile) error {
		if p.CreatedAt.IsZero() {
			return ErrNotFound
		}
		slot := kind.slot(p)
		if slot.Empty() {
			return ErrNotFound
		}
		removed = *slot
		*slot = profile.Asset{}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, profile.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("clear %s reference: %w", kind, err)
	}

	s.removeStale(ctx, kind, removed.Key)
	metrics.IncAssetDeleted(string(kind))
	return nil
}

// Open returns the current asset of kind for streaming. The caller closes it.
func (s *Service) Open(ctx context.Context, kind Kind) (io.ReadCloser, profile.Asset, error) {
	p, err := s.Profiles.Get(ctx, profile.DefaultID)
	if errors.Is(err, profile.ErrNotFound) {
		return nil, profile.Asset{}, ErrNotFound
	}
	if err != nil {
		return nil, profile.Asset{}, err
	}
	asset := *kind.slot(&p)
	if asset.Empty() {
		return nil, profile.Asset{}, ErrNotFound
	}
	rc, err := s.Store.Open(ctx, asset.Key)
	if errors.Is(err, object.ErrNotFound) {
		telemetry.Warn("asset.missing_object", map[string]any{"assetKind": string(kind), "key": asset.Key})
		return nil, profile.Asset{}, ErrNotFound
	}
	if err != nil {
		return nil, profile.Asset{}, fmt.Errorf("open %s: %w", asset.Key, err)
	}
	return rc, asset, nil
}

// Sweep removes stored objects that no profile slot references. Objects
// younger than grace are left alone because an upload may still be about to
// reference them.
func (s *Service) Sweep(ctx context.Context, grace time.Duration, dryRun bool) (SweepResult, error) {
	for _, k := range []Kind{KindImage, KindResume} {
		unlock := s.locks.lock(profile.DefaultID + "/" + string(k))
		defer unlock()
	}

	referenced := map[string]bool{}
	p, err := s.Profiles.Get(ctx, profile.DefaultID)
	switch {
	case err == nil:
		referenced[p.ProfileImage.Key] = true
		referenced[p.Resume.Key] = true
	case !errors.Is(err, profile.ErrNotFound):
		return SweepResult{}, fmt.Errorf("load profile: %w", err)
	}

	res := SweepResult{DryRun: dryRun, Orphans: []string{}}
	cutoff := s.now().Add(-grace)
	for _, k := range []Kind{KindImage, KindResume} {
		keys, err := s.Store.List(ctx, k.Prefix())
		if err != nil {
			return res, err
		}
		for _, key := range keys {
			res.Scanned++
			if referenced[key] {
				continue
			}
			// Keys this service did not mint are never swept.
			if at, ok := keyTime(key); !ok || at.After(cutoff) {
				res.Skipped++
				continue
			}
			res.Orphans = append(res.Orphans, key)
			if dryRun {
				continue
			}
			if err := s.Store.Delete(ctx, key); err != nil {
				telemetry.Warn("asset.sweep_delete_failed", map[string]any{"key": key, "error": err})
				continue
			}
			res.Deleted++
		}
	}
	telemetry.Info("asset.sweep", map[string]any{
		"scanned": res.Scanned,
		"orphans": len(res.Orphans),
		"deleted": res.Deleted,
		"dryRun":  dryRun,
	})
	return res, nil
}

// newKey builds "{prefix}/{kind}-{unixMillis}-{random}{ext}". The client's
// extension is kept when it is plain ASCII, otherwise the sniffed one is used.
func (s *Service) newKey(kind Kind, filename string, detected *mimetype.MIME) string {
	ext := util.SafeExtension(filename)
	if ext == "" {
		ext = detected.Extension()
	}
	return fmt.Sprintf("%s/%s-%d-%d%s", kind.Prefix(), kind, s.now().UnixMilli(), s.rand(), ext)
}

// keyTime recovers the upload time embedded in a generated key.
func keyTime(key string) (time.Time, bool) {
	name := key[strings.LastIndexByte(key, '/')+1:]
	parts := strings.SplitN(name, "-", 3)
	if len(parts) < 3 {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms).UTC(), true
}

func (s *Service) removeStale(ctx context.Context, kind Kind, key string) {
	if err := s.Store.Delete(ctx, key); err != nil {
		metrics.IncAssetOrphaned()
		telemetry.Warn("asset.stale_delete_failed", map[string]any{
			"assetKind": string(kind),
			"key":       key,
			"error":     err,
		})
	}
}

// cleanup removes a partially written object. It runs on a fresh context so
// a cancelled request still cleans up after itself.
func (s *Service) cleanup(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Store.Delete(ctx, key); err != nil {
		metrics.IncAssetOrphaned()
		telemetry.Warn("asset.cleanup_failed", map[string]any{"key": key, "error": err})
	}
}

func (s *Service) reject(err error) error {
	reason := "other"
	switch {
	case errors.Is(err, ErrNoFile):
		reason = "no_file"
	case errors.Is(err, ErrInvalidFileType):
		reason = "invalid_type"
	case errors.Is(err, ErrFileTooLarge):
		reason = "too_large"
	}
	metrics.IncAssetRejected(reason)
	return err
}
