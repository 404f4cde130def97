package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FeedSource はワーカーが定期取り込みするRSS/Atomフィードを表す。
type FeedSource struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// feedSourcesFile はFEED_SOURCES_FILEで指定するYAMLファイルの構造。
//
//	feeds:
//	  - name: example
//	    url: https://example.com/rss.xml
type feedSourcesFile struct {
	Feeds []FeedSource `yaml:"feeds"`
}

// LoadFeedSources はYAMLファイルからフィード一覧を読み込む。
// pathが空の場合は空スライスを返す。URLが空のエントリは除外する。
func LoadFeedSources(path string) ([]FeedSource, error) {
	if path == "" {
		return nil, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("フィード定義ファイルの読み込みに失敗しました: %w", err)
	}

	return ParseFeedSources(raw)
}

// ParseFeedSources はYAMLバイト列からフィード一覧を解析する。
func ParseFeedSources(raw []byte) ([]FeedSource, error) {
	var file feedSourcesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("フィード定義ファイルの解析に失敗しました: %w", err)
	}

	sources := make([]FeedSource, 0, len(file.Feeds))
	for _, f := range file.Feeds {
		f.URL = strings.TrimSpace(f.URL)
		if f.URL == "" {
			continue
		}
		if f.Name == "" {
			f.Name = f.URL
		}
		sources = append(sources, f)
	}
	return sources, nil
}
