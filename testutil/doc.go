// Copyright (c) AdaptiveRAG Authors.
// Licensed under the MIT License.

/*
Package testutil 汇集各包测试共用的辅助函数。

  - TestContext / CancelledContext: 带时限或已取消的 context
  - AssertErrorCode: 按 types.ErrorCode 断言错误链

子包 mocks 提供判定/生成服务、嵌入服务与 web 搜索的替身，
子包 fixtures 提供小语料、样例 HTML 与判定 JSON。

	judge := mocks.NewMockProvider().WithResponse(fixtures.RouteJSON("vectorstore"))
	_, err := nodes.RouteQuestion(testutil.TestContext(t), state)
*/
package testutil
