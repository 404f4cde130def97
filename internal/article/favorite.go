package article

import (
	"context"
	"errors"
	"fmt"

	"github.com/hitoshi/articlelens/internal/model"
	"github.com/hitoshi/articlelens/internal/repository"
)

// FavoriteService はお気に入り管理のサービス層。
type FavoriteService struct {
	favoriteRepo repository.FavoriteRepository
	articleRepo  repository.ArticleRepository
}

// NewFavoriteService はFavoriteServiceの新しいインスタンスを生成する。
func NewFavoriteService(favoriteRepo repository.FavoriteRepository, articleRepo repository.ArticleRepository) *FavoriteService {
	return &FavoriteService{favoriteRepo: favoriteRepo, articleRepo: articleRepo}
}

// Add は記事をユーザーのお気に入りに登録する。
func (s *FavoriteService) Add(ctx context.Context, userID, articleID string) (*model.Favorite, error) {
	if !isValidID(articleID) {
		return nil, model.NewArticleNotFoundError(articleID)
	}
	a, err := s.articleRepo.FindByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if a == nil {
		return nil, model.NewArticleNotFoundError(articleID)
	}

	fav, err := s.favoriteRepo.Add(ctx, userID, articleID)
	switch {
	case errors.Is(err, repository.ErrAlreadyExists):
		return nil, model.NewAlreadyFavoritedError()
	case errors.Is(err, repository.ErrReferenceNotFound):
		// 確認後に記事が削除された場合
		return nil, model.NewArticleNotFoundError(articleID)
	case err != nil:
		return nil, fmt.Errorf("お気に入りの登録に失敗しました: %w", err)
	}
	return fav, nil
}

// Remove はユーザーのお気に入りから記事を外す。
func (s *FavoriteService) Remove(ctx context.Context, userID, articleID string) error {
	if !isValidID(articleID) {
		return model.NewFavoriteNotFoundError(articleID)
	}
	removed, err := s.favoriteRepo.Remove(ctx, userID, articleID)
	if err != nil {
		return fmt.Errorf("お気に入りの削除に失敗しました: %w", err)
	}
	if !removed {
		return model.NewFavoriteNotFoundError(articleID)
	}
	return nil
}

// List はユーザーのお気に入り記事を登録の新しい順で返す。
func (s *FavoriteService) List(ctx context.Context, userID string) ([]*model.Article, error) {
	articles, err := s.favoriteRepo.ListArticlesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("お気に入り一覧の取得に失敗しました: %w", err)
	}
	return articles, nil
}
