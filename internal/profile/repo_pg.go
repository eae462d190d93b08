package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"portfolio-backend/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB db.Provider
}

const selectColumns = `
id, name, title, bio, email, phone, location, summary, years_of_experience, social_links,
image_key, image_mime, image_size, image_original_name, image_uploaded_at,
resume_key, resume_mime, resume_size, resume_original_name, resume_pages, resume_uploaded_at,
created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// Get returns the profile with the given id.
func (r *PGRepo) Get(ctx context.Context, id string) (Profile, error) {
	pool, err := r.DB.DB(ctx)
	if err != nil {
		return Profile{}, err
	}
	row := pool.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

// Update locks the row for the duration of fn and upserts the result.
func (r *PGRepo) Update(ctx context.Context, id string, fn func(p *Profile) error) (Profile, error) {
	pool, err := r.DB.DB(ctx)
	if err != nil {
		return Profile{}, err
	}
	tx, err := pool.BeginTx(ctx, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM profiles WHERE id = $1 FOR UPDATE`, id)
	p, err := scanProfile(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		p = Placeholder()
		p.ID = id
	case err != nil:
		return Profile{}, err
	}

	if err := fn(&p); err != nil {
		return Profile{}, err
	}

	links, err := json.Marshal(p.SocialLinks)
	if err != nil {
		return Profile{}, fmt.Errorf("encode social links: %w", err)
	}

	const upsert = `
INSERT INTO profiles (
    id, name, title, bio, email, phone, location, summary, years_of_experience, social_links,
    image_key, image_mime, image_size, image_original_name, image_uploaded_at,
    resume_key, resume_mime, resume_size, resume_original_name, resume_pages, resume_uploaded_at,
    created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, now(), now())
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  title = EXCLUDED.title,
  bio = EXCLUDED.bio,
  email = EXCLUDED.email,
  phone = EXCLUDED.phone,
  location = EXCLUDED.location,
  summary = EXCLUDED.summary,
  years_of_experience = EXCLUDED.years_of_experience,
  social_links = EXCLUDED.social_links,
  image_key = EXCLUDED.image_key,
  image_mime = EXCLUDED.image_mime,
  image_size = EXCLUDED.image_size,
  image_original_name = EXCLUDED.image_original_name,
  image_uploaded_at = EXCLUDED.image_uploaded_at,
  resume_key = EXCLUDED.resume_key,
  resume_mime = EXCLUDED.resume_mime,
  resume_size = EXCLUDED.resume_size,
  resume_original_name = EXCLUDED.resume_original_name,
  resume_pages = EXCLUDED.resume_pages,
  resume_uploaded_at = EXCLUDED.resume_uploaded_at,
  updated_at = now()
RETURNING created_at, updated_at`

	img, res := p.ProfileImage, p.Resume
	err = tx.QueryRowContext(ctx, upsert,
		p.ID, p.Name, p.Title, p.Bio, p.Email, p.Phone, p.Location, p.Summary, p.YearsOfExperience, string(links),
		nullableString(img.Key), nullableString(img.MimeType), nullableSize(img), nullableString(img.OriginalName), nullableTime(img),
		nullableString(res.Key), nullableString(res.MimeType), nullableSize(res), nullableString(res.OriginalName), nullablePages(res), nullableTime(res),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Profile{}, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

func scanProfile(row rowScanner) (Profile, error) {
	var (
		p     Profile
		links []byte

		imgKey, imgMime, imgName sql.NullString
		imgSize                  sql.NullInt64
		imgAt                    sql.NullTime

		resKey, resMime, resName sql.NullString
		resSize, resPages        sql.NullInt64
		resAt                    sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Title, &p.Bio, &p.Email, &p.Phone, &p.Location, &p.Summary, &p.YearsOfExperience, &links,
		&imgKey, &imgMime, &imgSize, &imgName, &imgAt,
		&resKey, &resMime, &resSize, &resName, &resPages, &resAt,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return Profile{}, err
	}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &p.SocialLinks); err != nil {
			return Profile{}, fmt.Errorf("decode social links: %w", err)
		}
	}
	p.ProfileImage = Asset{
		Key:          imgKey.String,
		MimeType:     imgMime.String,
		SizeBytes:    imgSize.Int64,
		OriginalName: imgName.String,
		UploadedAt:   imgAt.Time,
	}
	p.Resume = Asset{
		Key:          resKey.String,
		MimeType:     resMime.String,
		SizeBytes:    resSize.Int64,
		OriginalName: resName.String,
		Pages:        int(resPages.Int64),
		UploadedAt:   resAt.Time,
	}
	return p, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableSize(a Asset) any {
	if a.Empty() {
		return nil
	}
	return a.SizeBytes
}

func nullablePages(a Asset) any {
	if a.Empty() || a.Pages <= 0 {
		return nil
	}
	return a.Pages
}

func nullableTime(a Asset) any {
	if a.Empty() || a.UploadedAt.IsZero() {
		return nil
	}
	return a.UploadedAt
}
