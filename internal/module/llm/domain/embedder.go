package domain

import "context"

// Embedder はテキストをベクトル表現に変換するインターフェース
type Embedder interface {
	// Embed はテキストからEmbeddingベクトルを生成する
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch は複数テキストのEmbeddingをまとめて生成する。
	// 空文字列のエントリは呼び出し前に除外され、結果との位置対応は保持されない。
	// 呼び出し側は同じ条件でフィルタしたリストと突き合わせること。
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension はEmbeddingベクトルの次元数を返す
	Dimension() int
}
