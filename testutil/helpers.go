package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/adaptiverag/types"
)

// DefaultTestTimeout 是 TestContext 的时限
const DefaultTestTimeout = 30 * time.Second

// TestContext 测试结束时自动取消
func TestContext(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 一开始就已取消，用来驱动取消路径
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// AssertErrorCode 断言 err 的错误链上有 *types.Error 且 Code 为 code
func AssertErrorCode(t testing.TB, err error, code types.ErrorCode) bool {
	t.Helper()
	switch {
	case err == nil:
		t.Errorf("want error %s, got nil", code)
		return false
	case !types.IsErrorCode(err, code):
		t.Errorf("want error %s, got %s: %v", code, types.GetErrorCode(err), err)
		return false
	}
	return true
}
