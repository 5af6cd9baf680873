package topstocks

import "errors"

var (
	// ErrInvalidPrice 首笔报价价格必须为正（开盘价是之后所有涨跌幅计算的分母）
	ErrInvalidPrice = errors.New("invalid price")

	// ErrUnknownIndex 未知的排名索引类型
	ErrUnknownIndex = errors.New("unknown rank index")
)
