package interaction

import (
	"context"
	"fmt"
	"io"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// eventRow 是事件日志表的行结构。Seq 自增，保证 Load 的追加顺序。
type eventRow struct {
	Seq       uint64    `gorm:"primaryKey;autoIncrement"`
	ID        string    `gorm:"column:event_id;type:varchar(36);uniqueIndex"`
	UserID    string    `gorm:"column:user_id;index"`
	ItemID    string    `gorm:"column:item_id;index"`
	Type      string    `gorm:"column:interaction_type;type:varchar(16)"`
	Source    string    `gorm:"column:source"`
	Timestamp time.Time `gorm:"column:timestamp;index"`
}

func (eventRow) TableName() string { return "interaction_events" }

// GormSink 把事件日志持久化到关系库。
type GormSink struct {
	db *gorm.DB
}

// NewGormSink 使用已有连接并迁移表结构。
func NewGormSink(db *gorm.DB) (*GormSink, error) {
	if err := db.AutoMigrate(&eventRow{}); err != nil {
		return nil, fmt.Errorf("migrate interaction_events: %w", err)
	}
	return &GormSink{db: db}, nil
}

// OpenSQLite 打开 sqlite 文件（或 "file::memory:"）并返回 GormSink。失败时连接已关闭。
func OpenSQLite(path string) (*GormSink, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		if c, ok := db.ConnPool.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// sqlite 单写者；内存库每个连接各自独立，必须固定为一个连接
	sqlDB.SetMaxOpenConns(1)
	sink, err := NewGormSink(db)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return sink, nil
}

func (s *GormSink) Name() string { return "gorm:" + s.db.Dialector.Name() }

func (s *GormSink) Append(ctx context.Context, ev Event) error {
	row := eventRow{
		ID:        ev.ID,
		UserID:    ev.UserID,
		ItemID:    ev.ItemID,
		Type:      string(ev.Type),
		Source:    ev.Source,
		Timestamp: ev.Timestamp.UTC(),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *GormSink) Load(ctx context.Context) ([]Event, error) {
	var rows []eventRow
	if err := s.db.WithContext(ctx).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, Event{
			ID:        r.ID,
			UserID:    r.UserID,
			ItemID:    r.ItemID,
			Type:      EventType(r.Type),
			Source:    r.Source,
			Timestamp: r.Timestamp,
		})
	}
	return out, nil
}

// Close 关闭底层连接。
func (s *GormSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
