package app

import "slices"

// Command はサブコマンド名。
type Command string

const (
	CommandServe       Command = "serve"       // HTTP APIサーバー
	CommandWorker      Command = "worker"      // フィードポーリング
	CommandMigrate     Command = "migrate"     // スキーマ適用のみ行って終了
	CommandIngest      Command = "ingest"      // 引数のURLを1回取り込み、結果をJSONで出力
	CommandHealthcheck Command = "healthcheck" // distrolessイメージのHEALTHCHECK用
)

var commands = []Command{CommandServe, CommandWorker, CommandMigrate, CommandIngest, CommandHealthcheck}

func lookupCommand(name string) (Command, bool) {
	cmd := Command(name)
	return cmd, slices.Contains(commands, cmd)
}

// ParseCommand は先頭の引数をサブコマンドとして解釈する。
// 省略時や未知の名前はserveになる。
func ParseCommand(args []string) Command {
	if len(args) > 0 {
		if cmd, ok := lookupCommand(args[0]); ok {
			return cmd
		}
	}
	return CommandServe
}

// commandArgs はサブコマンド名に続く引数を返す。
// 先頭がサブコマンドでなければnil。
func commandArgs(args []string) []string {
	if len(args) == 0 {
		return nil
	}
	if _, ok := lookupCommand(args[0]); !ok {
		return nil
	}
	return args[1:]
}
