package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/01moynul/palett-api/internal/models"
)

// AssetStore persists generation results for the gallery.
type AssetStore struct {
	q Querier
}

func NewAssetStore(db *DB) *AssetStore {
	return &AssetStore{q: db.DB}
}

const assetColumns = `id, account_id, operation, model, prompt, negative_prompt, url, thumbnail_url,
	original_url, content_type, width, height, duration, aspect_ratio, credits_used, created_at`

// CreateAsset saves one generated image or video.
func (s *AssetStore) CreateAsset(ctx context.Context, a *models.GeneratedAsset) error {
	query := `
		INSERT INTO generated_assets (` + assetColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.q.ExecContext(ctx, query,
		a.ID, a.AccountID, a.Operation, a.Model, a.Prompt, a.NegativePrompt, a.URL, a.ThumbnailURL,
		a.OriginalURL, a.ContentType, a.Width, a.Height, a.Duration, a.AspectRatio, a.CreditsUsed, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	return nil
}

// ListAssets returns an account's assets newest first. An empty
// contentType lists both images and videos.
func (s *AssetStore) ListAssets(ctx context.Context, accountID, contentType string, limit int) ([]models.GeneratedAsset, error) {
	query := `SELECT ` + assetColumns + ` FROM generated_assets WHERE account_id = ?`
	args := []interface{}{accountID}

	if contentType != "" {
		query += ` AND content_type = ?`
		args = append(args, contentType)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	assets := []models.GeneratedAsset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// GetAsset returns nil, nil when the asset does not exist or belongs to
// another account.
func (s *AssetStore) GetAsset(ctx context.Context, accountID, id string) (*models.GeneratedAsset, error) {
	query := `SELECT ` + assetColumns + ` FROM generated_assets WHERE id = ? AND account_id = ?`

	a, err := scanAsset(s.q.QueryRowContext(ctx, query, id, accountID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// DeleteAsset removes an asset owned by accountID and reports whether a
// row was deleted.
func (s *AssetStore) DeleteAsset(ctx context.Context, accountID, id string) (bool, error) {
	result, err := s.q.ExecContext(ctx, "DELETE FROM generated_assets WHERE id = ? AND account_id = ?", id, accountID)
	if err != nil {
		return false, fmt.Errorf("delete asset: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete asset: %w", err)
	}
	return rowsAffected > 0, nil
}

// CountAssets counts an account's assets of one content type.
func (s *AssetStore) CountAssets(ctx context.Context, accountID, contentType string) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM generated_assets WHERE account_id = ? AND content_type = ?",
		accountID, contentType,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*models.GeneratedAsset, error) {
	var a models.GeneratedAsset
	err := row.Scan(
		&a.ID,
		&a.AccountID,
		&a.Operation,
		&a.Model,
		&a.Prompt,
		&a.NegativePrompt,
		&a.URL,
		&a.ThumbnailURL,
		&a.OriginalURL,
		&a.ContentType,
		&a.Width,
		&a.Height,
		&a.Duration,
		&a.AspectRatio,
		&a.CreditsUsed,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	return &a, nil
}
