package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-wallet/internal/domain"
	"github.com/fsdevblog/groph-wallet/pkg/uow"
)

type AssetTypeRepository struct {
	db uow.DBTX
}

func NewAssetTypeRepository(db uow.DBTX) *AssetTypeRepository {
	return &AssetTypeRepository{db: db}
}

// FindByCode возвращает актив по коду или domain.ErrRecordNotFound.
func (r *AssetTypeRepository) FindByCode(ctx context.Context, code string) (*domain.AssetType, error) {
	var asset domain.AssetType
	err := r.db.QueryRow(ctx, `SELECT id, code, name FROM asset_types WHERE code = $1`, code).
		Scan(&asset.ID, &asset.Code, &asset.Name)
	if err != nil {
		return nil, convertErr(err, "finding asset type `%s`", code)
	}
	return &asset, nil
}
