package domain

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// EntityAdapter は1つのエンティティ種別に対するベクトル検索を提供するインターフェース。
// 実装は (1) Embedding が非NULLの行のみを対象とし、(2) 類似度を 1 - コサイン距離 で計算し、
// (3) 患者IDフィルタがあれば適用し、(4) しきい値を下限（以上）として適用し、
// (5) 類似度の降順で (6) limit 件まで返す。
type EntityAdapter interface {
	// Kind はこのアダプタが担当するエンティティ種別を返す
	Kind() EntityKind

	// Search はクエリベクトルに対する類似検索を実行する
	Search(ctx context.Context, queryVector []float32, patientID mo.Option[uuid.UUID], threshold float64, limit int) ([]*SearchResult, error)
}
