/*
包 tools 提供 web 搜索后端。

  - WebSearchProvider：搜索接口
  - TavilyProvider：Tavily 搜索 API 实现
  - CachedProvider：基于 internal/cache 的结果缓存装饰器
*/
package tools
