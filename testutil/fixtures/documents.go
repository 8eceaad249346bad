package fixtures

import (
	"github.com/BaSui01/adaptiverag/types"
)

// AgentPosts 是关于 agent 的小语料，用于检索测试
var AgentPosts = []types.Document{
	types.NewDocument("Agent memory: short-term memory is in-context learning, long-term memory uses an external vector store.",
		map[string]any{"source": "https://lilianweng.github.io/posts/2023-06-23-agent/"}),
	types.NewDocument("Prompt engineering steers model behaviour without updating weights; chain of thought elicits reasoning.",
		map[string]any{"source": "https://lilianweng.github.io/posts/2023-03-15-prompt-engineering/"}),
	types.NewDocument("Adversarial attacks on LLMs include jailbreak prompts and token manipulation.",
		map[string]any{"source": "https://lilianweng.github.io/posts/2023-10-25-adv-attack-llm/"}),
}

// SampleHTML 是带标题、描述与语言的小页面
const SampleHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <title>LLM Powered Autonomous Agents</title>
  <meta name="description" content="Building agents with LLM as the core controller.">
</head>
<body>
  <h1>Agent System Overview</h1>
  <p>In a LLM-powered autonomous agent system, the LLM functions as the agent's brain.</p>
  <h2>Memory</h2>
  <p>Short-term memory is in-context learning. Long-term memory retains information over extended periods using a vector store.</p>
  <h2>Tool use</h2>
  <p>Agents call external APIs for extra information missing from the model weights.</p>
</body>
</html>`
