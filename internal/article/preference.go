package article

import (
	"context"
	"fmt"
	"strings"

	"github.com/hitoshi/articlelens/internal/repository"
)

// PreferenceService はユーザーの関心カテゴリ設定のサービス層。
type PreferenceService struct {
	repo repository.PreferenceRepository
}

// NewPreferenceService はPreferenceServiceの新しいインスタンスを生成する。
func NewPreferenceService(repo repository.PreferenceRepository) *PreferenceService {
	return &PreferenceService{repo: repo}
}

// Save はユーザーの関心カテゴリを上書き保存し、保存後の一覧を返す。
// 各カテゴリの前後の空白は取り除き、空のものは捨てる。
func (s *PreferenceService) Save(ctx context.Context, userID string, categories []string) ([]string, error) {
	cleaned := make([]string, 0, len(categories))
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			cleaned = append(cleaned, c)
		}
	}

	pref, err := s.repo.Upsert(ctx, userID, cleaned)
	if err != nil {
		return nil, fmt.Errorf("関心カテゴリの保存に失敗しました: %w", err)
	}
	if pref.Categories == nil {
		return []string{}, nil
	}
	return pref.Categories, nil
}

// Get はユーザーの関心カテゴリを返す。未設定の場合は空のスライスを返す。
func (s *PreferenceService) Get(ctx context.Context, userID string) ([]string, error) {
	pref, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("関心カテゴリの取得に失敗しました: %w", err)
	}
	if pref == nil || pref.Categories == nil {
		return []string{}, nil
	}
	return pref.Categories, nil
}
