package assets

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"portfolio-backend/internal/profile"
	"portfolio-backend/internal/shared/storage/object"
	"portfolio-backend/internal/shared/storage/object/local"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func pngBody(extra int) []byte {
	return append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, extra)...)
}

func pdfBody() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
}

func newTestService(t *testing.T, limits Limits) (*Service, *profile.MemoryRepo, *local.Store) {
	t.Helper()
	store, err := local.New(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	repo := profile.NewMemoryRepo()
	svc := NewService(repo, store, limits)
	var seq int64
	svc.rand = func() int64 { seq++; return seq }
	return svc, repo, store
}

func imageInput(body []byte) UploadInput {
	return UploadInput{Kind: KindImage, Filename: "me.png", ContentType: "image/png", Size: int64(len(body)), Body: bytes.NewReader(body)}
}

func exists(t *testing.T, store object.Store, key string) bool {
	t.Helper()
	rc, err := store.Open(context.Background(), key)
	if errors.Is(err, object.ErrNotFound) {
		return false
	}
	if err != nil {
		t.Fatalf("open %s: %v", key, err)
	}
	rc.Close()
	return true
}

func TestUploadReplacesPreviousAsset(t *testing.T) {
	svc, repo, store := newTestService(t, Limits{})
	ctx := context.Background()

	first, err := svc.Upload(ctx, imageInput(pngBody(10)))
	if err != nil {
		t.Fatalf("first upload: %v", err)
	}
	second, err := svc.Upload(ctx, imageInput(pngBody(20)))
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}

	if first.Reference == second.Reference {
		t.Fatalf("expected a new reference, got %q twice", first.Reference)
	}
	if exists(t, store, first.Asset.Key) {
		t.Fatalf("previous object %s should be gone", first.Asset.Key)
	}
	if !exists(t, store, second.Asset.Key) {
		t.Fatalf("new object %s should exist", second.Asset.Key)
	}

	p, err := repo.Get(ctx, profile.DefaultID)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.ProfileImage.Key != second.Asset.Key {
		t.Fatalf("profile references %q, want %q", p.ProfileImage.Key, second.Asset.Key)
	}
	if p.Name != "Your Name" || p.Title != "Your Title" {
		t.Fatalf("expected placeholder identity, got %q / %q", p.Name, p.Title)
	}

	rc, asset, err := svc.Open(ctx, KindImage)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if !bytes.Equal(got, pngBody(20)) || asset.MimeType != "image/png" {
		t.Fatalf("unexpected asset %+v", asset)
	}
}

func TestUploadKeyFormat(t *testing.T) {
	svc, _, _ := newTestService(t, Limits{})
	svc.now = func() time.Time { return time.UnixMilli(1700000000000).UTC() }

	res, err := svc.Upload(context.Background(), UploadInput{
		Kind: KindResume, Filename: "CV Final.PDF", ContentType: "application/pdf", Size: -1, Body: bytes.NewReader(pdfBody()),
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.Asset.Key != "resumes/resume-1700000000000-1.pdf" {
		t.Fatalf("unexpected key %q", res.Asset.Key)
	}
	if res.StoredName != "resume-1700000000000-1.pdf" {
		t.Fatalf("unexpected stored name %q", res.StoredName)
	}
	if res.Reference != "/api/profile/resume?v=resume-1700000000000-1.pdf" {
		t.Fatalf("unexpected reference %q", res.Reference)
	}
	if res.Asset.OriginalName != "CV Final.PDF" {
		t.Fatalf("unexpected original name %q", res.Asset.OriginalName)
	}
}

func TestUploadRejectsWrongType(t *testing.T) {
	svc, repo, store := newTestService(t, Limits{})
	ctx := context.Background()

	existing, err := svc.Upload(ctx, imageInput(pngBody(1)))
	if err != nil {
		t.Fatalf("seed upload: %v", err)
	}

	tests := []struct {
		name string
		in   UploadInput
	}{
		{name: "declared pdf as image", in: UploadInput{Kind: KindImage, Filename: "a.pdf", ContentType: "application/pdf", Size: -1, Body: bytes.NewReader(pdfBody())}},
		{name: "declared image but text body", in: UploadInput{Kind: KindImage, Filename: "a.png", ContentType: "image/png", Size: -1, Body: strings.NewReader("just some text")}},
		{name: "resume as image type", in: UploadInput{Kind: KindResume, Filename: "a.png", ContentType: "image/png", Size: -1, Body: bytes.NewReader(pngBody(1))}},
		{name: "resume with docx type", in: UploadInput{Kind: KindResume, Filename: "a.docx", ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Size: -1, Body: strings.NewReader("PK")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Upload(ctx, tt.in); !errors.Is(err, ErrInvalidFileType) {
				t.Fatalf("expected ErrInvalidFileType, got %v", err)
			}
		})
	}

	p, _ := repo.Get(ctx, profile.DefaultID)
	if p.ProfileImage.Key != existing.Asset.Key {
		t.Fatalf("reference changed after rejected uploads")
	}
	keys, _ := store.List(ctx, "")
	if len(keys) != 1 {
		t.Fatalf("expected only the seeded object, got %v", keys)
	}
}

func TestUploadRejectsOversize(t *testing.T) {
	svc, repo, store := newTestService(t, Limits{Image: 4096, Resume: 4096})
	ctx := context.Background()

	declared := imageInput(pngBody(5000))
	if _, err := svc.Upload(ctx, declared); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge for declared size, got %v", err)
	}

	streamed := imageInput(pngBody(5000))
	streamed.Size = -1
	if _, err := svc.Upload(ctx, streamed); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge while streaming, got %v", err)
	}

	keys, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("expected no stored objects, got %v", keys)
	}
	if _, err := repo.Get(ctx, profile.DefaultID); !errors.Is(err, profile.ErrNotFound) {
		t.Fatalf("rejected upload must not create a profile, got %v", err)
	}
}

func TestUploadValidationOrder(t *testing.T) {
	svc, _, _ := newTestService(t, Limits{Image: 10})

	if _, err := svc.Upload(context.Background(), UploadInput{Kind: KindImage, ContentType: "text/plain", Size: 100}); !errors.Is(err, ErrNoFile) {
		t.Fatalf("missing body should be ErrNoFile first, got %v", err)
	}
	if _, err := svc.Upload(context.Background(), UploadInput{Kind: KindImage, ContentType: "text/plain", Size: 100, Body: strings.NewReader("x")}); !errors.Is(err, ErrInvalidFileType) {
		t.Fatalf("type should be checked before size, got %v", err)
	}
	if _, err := svc.Upload(context.Background(), UploadInput{Kind: KindImage, ContentType: "image/png", Size: 0, Body: strings.NewReader("")}); !errors.Is(err, ErrNoFile) {
		t.Fatalf("empty body should be ErrNoFile, got %v", err)
	}
}

type failingRepo struct {
	profile.Repo
}

func (failingRepo) Update(ctx context.Context, id string, fn func(p *profile.Profile) error) (profile.Profile, error) {
	return profile.Profile{}, errors.New("database unavailable")
}

func TestUploadCleansUpWhenReferenceSaveFails(t *testing.T) {
	svc, _, store := newTestService(t, Limits{})
	svc.Profiles = failingRepo{Repo: svc.Profiles}

	if _, err := svc.Upload(context.Background(), imageInput(pngBody(10))); err == nil {
		t.Fatalf("expected error when the profile cannot be saved")
	}
	keys, _ := store.List(context.Background(), "")
	if len(keys) != 0 {
		t.Fatalf("expected new object to be cleaned up, found %v", keys)
	}
}

type stickyStore struct {
	object.Store
}

func (stickyStore) Delete(ctx context.Context, key string) error {
	return errors.New("permission denied")
}

func TestUploadToleratesStaleDeleteFailure(t *testing.T) {
	svc, repo, store := newTestService(t, Limits{})
	ctx := context.Background()
	if _, err := svc.Upload(ctx, imageInput(pngBody(1))); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc.Store = stickyStore{Store: store}
	res, err := svc.Upload(ctx, imageInput(pngBody(2)))
	if err != nil {
		t.Fatalf("stale delete failure must not fail the upload: %v", err)
	}
	p, _ := repo.Get(ctx, profile.DefaultID)
	if p.ProfileImage.Key != res.Asset.Key {
		t.Fatalf("reference not switched")
	}
}

func TestDeleteThenNotFound(t *testing.T) {
	svc, repo, store := newTestService(t, Limits{})
	ctx := context.Background()

	if err := svc.Delete(ctx, KindResume); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound without a profile, got %v", err)
	}

	res, err := svc.Upload(ctx, UploadInput{Kind: KindResume, Filename: "cv.pdf", ContentType: "application/pdf", Size: -1, Body: bytes.NewReader(pdfBody())})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := svc.Delete(ctx, KindResume); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if exists(t, store, res.Asset.Key) {
		t.Fatalf("object should be removed")
	}
	p, _ := repo.Get(ctx, profile.DefaultID)
	if !p.Resume.Empty() {
		t.Fatalf("reference should be cleared")
	}
	if err := svc.Delete(ctx, KindResume); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
	if _, _, err := svc.Open(ctx, KindResume); !errors.Is(err, ErrNotFound) {
		t.Fatalf("open after delete should be ErrNotFound, got %v", err)
	}
}

func TestOpenMissingObjectIsNotFound(t *testing.T) {
	svc, _, store := newTestService(t, Limits{})
	ctx := context.Background()
	res, err := svc.Upload(ctx, imageInput(pngBody(1)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if err := store.Delete(ctx, res.Asset.Key); err != nil {
		t.Fatalf("delete object: %v", err)
	}
	if _, _, err := svc.Open(ctx, KindImage); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentUploadsLeaveNoOrphans(t *testing.T) {
	svc, repo, store := newTestService(t, Limits{})
	var mu sync.Mutex
	svc.rand = func() int64 {
		mu.Lock()
		defer mu.Unlock()
		return time.Now().UnixNano()
	}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Upload(ctx, imageInput(pngBody(i+1))); err != nil {
				t.Errorf("upload %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	keys, err := store.List(ctx, "images")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	p, _ := repo.Get(ctx, profile.DefaultID)
	if len(keys) != 1 || keys[0] != p.ProfileImage.Key {
		t.Fatalf("expected exactly the referenced object, got %v (ref %s)", keys, p.ProfileImage.Key)
	}
}

func TestSweepRemovesOrphans(t *testing.T) {
	svc, _, store := newTestService(t, Limits{})
	ctx := context.Background()
	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	res, err := svc.Upload(ctx, imageInput(pngBody(1)))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	old := "images/image-" + itoa(now.Add(-time.Hour).UnixMilli()) + "-7.png"
	fresh := "resumes/resume-" + itoa(now.Add(-time.Minute).UnixMilli()) + "-8.pdf"
	for _, key := range []string{old, fresh} {
		if _, err := store.Put(ctx, key, "", strings.NewReader("x")); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	dry, err := svc.Sweep(ctx, DefaultSweepGrace, true)
	if err != nil {
		t.Fatalf("dry sweep: %v", err)
	}
	if dry.Scanned != 3 || len(dry.Orphans) != 1 || dry.Orphans[0] != old || dry.Deleted != 0 || dry.Skipped != 1 {
		t.Fatalf("unexpected dry run %+v", dry)
	}
	if !exists(t, store, old) {
		t.Fatalf("dry run must not delete")
	}

	swept, err := svc.Sweep(ctx, DefaultSweepGrace, false)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept.Deleted != 1 || exists(t, store, old) {
		t.Fatalf("expected orphan removed, got %+v", swept)
	}
	if !exists(t, store, res.Asset.Key) || !exists(t, store, fresh) {
		t.Fatalf("referenced and fresh objects must survive")
	}
}

func TestSweepLeavesForeignKeys(t *testing.T) {
	svc, _, store := newTestService(t, Limits{})
	ctx := context.Background()
	now := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	foreign := []string{
		"images/logo.png",
		"images/image-notatime-1.png",
		"resumes/backup/cv.pdf",
	}
	for _, key := range foreign {
		if _, err := store.Put(ctx, key, "", strings.NewReader("x")); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	res, err := svc.Sweep(ctx, DefaultSweepGrace, false)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if res.Scanned != len(foreign) || res.Skipped != len(foreign) || len(res.Orphans) != 0 || res.Deleted != 0 {
		t.Fatalf("unexpected sweep %+v", res)
	}
	for _, key := range foreign {
		if !exists(t, store, key) {
			t.Fatalf("%s must survive the sweep", key)
		}
	}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
