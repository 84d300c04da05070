package domain

import "context"

// Completer はプロンプトから応答テキストを生成するインターフェース
type Completer interface {
	// Complete はプロンプトに対する応答を一回の呼び出しで生成する
	Complete(ctx context.Context, prompt string) (string, error)
}
