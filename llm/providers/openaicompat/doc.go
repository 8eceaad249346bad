// Package openaicompat 是 OpenAI 兼容 /chat/completions 服务的公共实现。
//
// groq 与 openai 子包只提供服务名、根地址、默认模型与 Decorate 钩子：
//
//	p := openaicompat.New(openaicompat.Config{
//	    Name:         "groq",
//	    APIKey:       key,
//	    BaseURL:      "https://api.groq.com/openai",
//	    DefaultModel: "qwen/qwen3-32b",
//	}, logger)
package openaicompat
