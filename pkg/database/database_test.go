package database

import (
	"testing"

	"exam_prep_backend/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"
)

// 迁移的 DDL 必须保持方言无关：服务层测试全部跑在 sqlite 上，
// 任何 MySQL 专属的列默认值都会让整个测试套件在建表时就失败
func TestMigrateOnSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, table := range []string{"users", "papers", "question_snapshots", "attempts", "answers"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("table %s missing after migration", table)
		}
	}

	// 列默认值在 sqlite 下同样可用
	user := &model.User{Name: "学生", Email: "student@example.com", Password: "hashed"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("insert user with column defaults: %v", err)
	}
}
