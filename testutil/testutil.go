// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 提供各包共享的测试基础设施：测试上下文、轮询断言、SQLite 测试数据库工厂。
//
// 使用方法:
//
//	path := testutil.CreateUserDB(t,
//	    testutil.UserRow{Email: testutil.Str("a@x.com"), Phone: testutil.Str("5551234")},
//	)
//	testutil.AssertEventuallyTrue(t, func() bool { return condition }, 2*time.Second)
// =============================================================================
package testutil

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/glebarez/go-sqlite" // register pure-Go SQLite driver
)

// TestContext 返回带超时的测试上下文，自动注册 Cleanup 防止泄漏
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// AssertEventuallyTrue 轮询等待条件满足，超时则判失败
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Errorf("condition did not become true within %v", timeout)
}

// =============================================================================
// 🗄️ SQLite 测试数据库工厂
// =============================================================================

// UserRow 测试数据库中的一行用户数据，nil 表示 NULL
type UserRow struct {
	Email *string
	Phone *string
	QQ    *string
}

// Str 返回字符串指针，便于构造 UserRow
func Str(s string) *string {
	return &s
}

// CreateUserDB 在临时目录创建一个带 users 表的 SQLite 数据库并写入 rows，
// 返回数据库文件路径。文件随测试结束自动清理。
func CreateUserDB(t testing.TB, rows ...UserRow) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "user_data.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE users (email TEXT, phone TEXT, qq TEXT)`); err != nil {
		t.Fatalf("create users table: %v", err)
	}

	for _, row := range rows {
		if _, err := db.Exec(`INSERT INTO users (email, phone, qq) VALUES (?, ?, ?)`,
			row.Email, row.Phone, row.QQ); err != nil {
			t.Fatalf("insert fixture row: %v", err)
		}
	}

	return path
}
