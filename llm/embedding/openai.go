package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/BaSui01/adaptiverag/internal/tlsutil"
	"github.com/BaSui01/adaptiverag/llm"
	"github.com/BaSui01/adaptiverag/llm/providers"
)

const (
	defaultBaseURL    = "https://api.openai.com"
	defaultModel      = "text-embedding-3-large"
	defaultDimensions = 1024
	defaultBatchSize  = 256
	defaultTimeout    = 60 * time.Second

	providerName = "openai-embedding"
)

// OpenAIConfig OpenAI 嵌入配置
type OpenAIConfig struct {
	APIKey     string        `json:"api_key" yaml:"api_key"`
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	Model      string        `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int           `json:"dimensions,omitempty" yaml:"dimensions,omitempty"` // text-embedding-3 支持截断维度
	BatchSize  int           `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// OpenAIProvider 调用 POST /v1/embeddings
type OpenAIProvider struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAIProvider 创建 OpenAI 嵌入服务，零值字段取默认
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = defaultDimensions
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &OpenAIProvider{cfg: cfg, client: tlsutil.NewClient(cfg.Timeout)}
}

func (p *OpenAIProvider) Name() string    { return providerName }
func (p *OpenAIProvider) Model() string   { return p.cfg.Model }
func (p *OpenAIProvider) Dimensions() int { return p.cfg.Dimensions }
func (p *OpenAIProvider) BatchSize() int  { return p.cfg.BatchSize }

// EmbedQuery 嵌入单个问题
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	vecs, err := p.embedBatch(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedDocuments 按 BatchSize 分批请求
func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, documents []string) ([][]float64, error) {
	out := make([][]float64, 0, len(documents))
	for start := 0; start < len(documents); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(documents))
		vecs, err := p.embedBatch(ctx, documents[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

type embedRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	Dimensions     int      `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

type embedData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

type embedResponse struct {
	Model string      `json:"model"`
	Data  []embedData `json:"data"`
}

// embedBatch 发送一次请求；结果按 index 排序并校验条数与维度
func (p *OpenAIProvider) embedBatch(ctx context.Context, inputs []string) ([][]float64, error) {
	body, err := json.Marshal(embedRequest{
		Input:          inputs,
		Model:          p.cfg.Model,
		Dimensions:     p.cfg.Dimensions,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embeddings request: %w", err)
	}
	providers.BearerTokenHeaders(req, p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &llm.Error{
			Code:       llm.ErrUpstreamError,
			Message:    err.Error(),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Provider:   providerName,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, providers.MapHTTPError(resp.StatusCode, providers.ReadErrorMessage(resp.Body), providerName)
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	if len(decoded.Data) != len(inputs) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(decoded.Data))
	}

	sort.SliceStable(decoded.Data, func(i, j int) bool { return decoded.Data[i].Index < decoded.Data[j].Index })
	vecs := make([][]float64, len(decoded.Data))
	for i, d := range decoded.Data {
		if len(d.Embedding) != p.cfg.Dimensions {
			return nil, fmt.Errorf("embedding %d has %d dimensions, expected %d", d.Index, len(d.Embedding), p.cfg.Dimensions)
		}
		vecs[i] = d.Embedding
	}
	return vecs, nil
}
