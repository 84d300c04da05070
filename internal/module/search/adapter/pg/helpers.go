package pg

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/samber/mo"
)

// patientParam は任意の患者IDフィルタをSQLパラメータに変換します。
// 未指定の場合はNULLとなり、WHERE句の ($n::uuid IS NULL OR ...) で全件検索になる。
func patientParam(patientID mo.Option[uuid.UUID]) pgtype.UUID {
	if id, ok := patientID.Get(); ok {
		return pgtype.UUID{Bytes: id, Valid: true}
	}
	return pgtype.UUID{}
}

// UUIDToPgtype converts uuid.UUID to pgtype.UUID
func UUIDToPgtype(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}
