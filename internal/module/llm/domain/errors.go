package domain

import "errors"

var (
	// ErrInvalidInput は入力が不正な場合のエラー（空テキスト、不正な日付範囲など）。
	// 外部APIを呼び出す前に検出される。
	ErrInvalidInput = errors.New("invalid input")

	// ErrProviderUnavailable は外部プロバイダが利用できない場合のエラー。
	// 内部でリトライせず、呼び出し側に判断を委ねる。
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrGenerationFailed は応答生成に失敗した場合のエラー
	ErrGenerationFailed = errors.New("generation failed")

	// ErrNotFound は対象エンティティが存在しない場合のエラー
	ErrNotFound = errors.New("not found")

	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("API key not set")
)
