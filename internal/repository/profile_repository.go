package repository

import (
	"context"

	"github.com/gdugdh24/mpit2026-matching/internal/domain"
)

type ProfileRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Profile, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*domain.Profile, error)
}
