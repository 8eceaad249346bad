// Copyright (c) AdaptiveRAG Authors.
// Licensed under the MIT License.

/*
包 metrics 基于 Prometheus 采集服务运行指标。

NewCollector 注册到默认 registry，由 serve 命令在独立端口的 /metrics 上暴露；
测试使用 NewCollectorWith 传入独立的 registry。

指标分组：

  - HTTP：请求数（按 2xx/3xx/4xx/5xx 归类）、耗时、响应大小
  - 工作流：节点执行次数与耗时、运行结果、每次运行的步数
  - LLM：判定与生成调用次数、耗时、prompt/completion token 用量
  - 入库：入库次数、耗时、写入的分块数
  - 缓存：web 搜索缓存查找，按 hit/miss 区分
*/
package metrics
