// 文件: pkg/directory/mysql_repo.go
package directory

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type MySQLRepository struct {
	db *gorm.DB
}

// OpenMySQL 连接 MySQL
func OpenMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	return db, nil
}

func NewMySQLRepository(db *gorm.DB) *MySQLRepository {
	return &MySQLRepository{db: db}
}

func (r *MySQLRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&Instrument{})
}

// Upsert 按主键插入或更新代码和名称
func (r *MySQLRepository) Upsert(ctx context.Context, items ...*Instrument) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"symbol", "name", "updated_at"}),
		}).
		CreateInBatches(items, 500).Error
}

func (r *MySQLRepository) List(ctx context.Context) ([]*Instrument, error) {
	var items []*Instrument
	err := r.db.WithContext(ctx).Order("id ASC").Find(&items).Error
	return items, err
}
