package repoargs

import "github.com/shopspring/decimal"

type BalanceChange struct {
	AccountID   int64
	AssetTypeID int64
	// Delta положительная для зачисления, отрицательная для списания.
	Delta decimal.Decimal
}

type AuditCursor struct {
	AfterID int64
	Limit   uint
}
