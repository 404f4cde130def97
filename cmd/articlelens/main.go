// Command articlelens は記事取り込み・分類サービスのエントリーポイント。
//
// サブコマンド:
//
//	serve       HTTP APIサーバー（デフォルト）
//	worker      フィードポーリングワーカー
//	migrate     データベースマイグレーション
//	ingest URL… URLを1回だけ取り込み結果をJSONで出力
//	healthcheck /health への疎通確認（distroless用）
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/articlelens/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "articlelens: %v\n", err)
		os.Exit(1)
	}
}
