// 文件: pkg/directory/model.go
package directory

// Instrument 标的目录记录
type Instrument struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Symbol    string `gorm:"type:varchar(32);uniqueIndex;not null" json:"symbol"`
	Name      string `gorm:"type:varchar(128)" json:"name"`
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at"`
	UpdatedAt int64  `gorm:"autoUpdateTime:milli" json:"updated_at"`
}

func (Instrument) TableName() string {
	return "instruments"
}
