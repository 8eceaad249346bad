package rag

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/BaSui01/adaptiverag/internal/database"
	"github.com/BaSui01/adaptiverag/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// =============================================================================
// 🗂️ 持久化索引
// =============================================================================

const (
	// IndexFileName 索引目录下的 SQLite 文件名
	IndexFileName = "index.db"

	// IndexFormatVersion 索引格式版本
	IndexFormatVersion = 1

	indexInsertBatch = 200
)

// IndexIdentity 嵌入模型与维度构成索引身份。
type IndexIdentity struct {
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

func (id IndexIdentity) String() string {
	return fmt.Sprintf("%s/%d", id.Model, id.Dimensions)
}

// IndexManifest 描述一次入库的结果。
type IndexManifest struct {
	FormatVersion  int       `json:"format_version"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimensions     int       `json:"dimensions"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap"`
	ChunkCount     int       `json:"chunk_count"`
	Sources        []string  `json:"sources"`
	CreatedAt      time.Time `json:"created_at"`
}

// Identity returns the manifest's embedding identity.
func (m IndexManifest) Identity() IndexIdentity {
	return IndexIdentity{Model: m.EmbeddingModel, Dimensions: m.Dimensions}
}

// Index 是内存中的完整索引。
type Index struct {
	Manifest IndexManifest
	Chunks   []Chunk
}

// IndexFile returns the database path inside an index directory.
func IndexFile(dir string) string {
	return filepath.Join(dir, IndexFileName)
}

// manifestRow 对应 index_manifests 表
type manifestRow struct {
	ID             uint `gorm:"primaryKey"`
	FormatVersion  int
	EmbeddingModel string `gorm:"size:255;not null"`
	Dimensions     int    `gorm:"not null"`
	ChunkSize      int
	ChunkOverlap   int
	ChunkCount     int
	Sources        string `gorm:"type:text"`
	CreatedAt      time.Time
}

func (manifestRow) TableName() string { return "index_manifests" }

// chunkRow 对应 index_chunks 表
type chunkRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Position  int    `gorm:"index;not null"`
	Content   string `gorm:"type:text;not null"`
	Metadata  string `gorm:"type:text"`
	Embedding []byte `gorm:"not null"`
}

func (chunkRow) TableName() string { return "index_chunks" }

// SaveIndex 将索引写入 dir/index.db。
// 先写同目录下的临时文件，成功后原子 rename，读者不会看到半写的索引。
func SaveIndex(ctx context.Context, dir string, idx *Index, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if idx == nil || len(idx.Chunks) == 0 {
		return types.NewInvalidRequestError("refusing to save an empty index")
	}
	dims := idx.Manifest.Dimensions
	for _, c := range idx.Chunks {
		if len(c.Embedding) != dims {
			return types.NewInternalError(fmt.Sprintf("chunk %s has %d dimensions, manifest declares %d", c.ID, len(c.Embedding), dims))
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".index-%s.db.tmp", uuid.NewString()))
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	if err := writeIndexFile(ctx, tmp, idx, logger); err != nil {
		return err
	}
	if err := os.Rename(tmp, IndexFile(dir)); err != nil {
		return fmt.Errorf("publish index: %w", err)
	}
	committed = true

	logger.Info("evidence index saved",
		zap.String("path", IndexFile(dir)),
		zap.Int("chunks", len(idx.Chunks)),
		zap.Stringer("identity", idx.Manifest.Identity()))
	return nil
}

func writeIndexFile(ctx context.Context, path string, idx *Index, logger *zap.Logger) error {
	db, err := database.Open(path, database.ReadWrite, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Session(ctx).AutoMigrate(&manifestRow{}, &chunkRow{}); err != nil {
		return fmt.Errorf("migrate index schema: %w", err)
	}

	sources, err := json.Marshal(idx.Manifest.Sources)
	if err != nil {
		return fmt.Errorf("encode sources: %w", err)
	}
	manifest := manifestRow{
		FormatVersion:  IndexFormatVersion,
		EmbeddingModel: idx.Manifest.EmbeddingModel,
		Dimensions:     idx.Manifest.Dimensions,
		ChunkSize:      idx.Manifest.ChunkSize,
		ChunkOverlap:   idx.Manifest.ChunkOverlap,
		ChunkCount:     len(idx.Chunks),
		Sources:        string(sources),
		CreatedAt:      idx.Manifest.CreatedAt,
	}
	if manifest.CreatedAt.IsZero() {
		manifest.CreatedAt = time.Now().UTC()
	}

	rows := make([]chunkRow, len(idx.Chunks))
	for i, c := range idx.Chunks {
		meta, err := json.Marshal(c.Document.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata of chunk %s: %w", c.ID, err)
		}
		rows[i] = chunkRow{
			ID:        c.ID,
			Position:  i,
			Content:   c.Document.PageContent,
			Metadata:  string(meta),
			Embedding: encodeEmbedding(c.Embedding),
		}
	}

	return db.Tx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&manifest).Error; err != nil {
			return fmt.Errorf("write manifest: %w", err)
		}
		if err := tx.CreateInBatches(rows, indexInsertBatch).Error; err != nil {
			return fmt.Errorf("write chunks: %w", err)
		}
		return nil
	})
}

// LoadIndex 读取 dir/index.db 并校验身份。
// 缺失、为空或身份不匹配都返回 EvidenceStoreUnavailable。
func LoadIndex(ctx context.Context, dir string, expect IndexIdentity, logger *zap.Logger) (*Index, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	path := IndexFile(dir)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, types.NewEvidenceStoreUnavailableError(fmt.Sprintf("no evidence index at %s", dir))
		}
		return nil, types.NewEvidenceStoreUnavailableError("stat evidence index").WithCause(err)
	}

	db, err := database.Open(path, database.ReadOnly, logger)
	if err != nil {
		return nil, types.NewEvidenceStoreUnavailableError("open evidence index").WithCause(err)
	}
	defer db.Close()

	gdb := db.Session(ctx)
	var manifest manifestRow
	if err := gdb.Order("id desc").Take(&manifest).Error; err != nil {
		return nil, types.NewEvidenceStoreUnavailableError(fmt.Sprintf("evidence index at %s has no manifest", dir)).WithCause(err)
	}

	found := IndexIdentity{Model: manifest.EmbeddingModel, Dimensions: manifest.Dimensions}
	if expect != (IndexIdentity{}) && found != expect {
		return nil, types.NewEvidenceStoreUnavailableError(fmt.Sprintf(
			"evidence index was built with %s but the configured embedder is %s", found, expect))
	}

	var rows []chunkRow
	if err := gdb.Order("position asc").Find(&rows).Error; err != nil {
		return nil, types.NewEvidenceStoreUnavailableError("read evidence chunks").WithCause(err)
	}
	if len(rows) == 0 {
		return nil, types.NewEvidenceStoreUnavailableError(fmt.Sprintf("evidence index at %s is empty", dir))
	}

	idx := &Index{
		Manifest: IndexManifest{
			FormatVersion:  manifest.FormatVersion,
			EmbeddingModel: manifest.EmbeddingModel,
			Dimensions:     manifest.Dimensions,
			ChunkSize:      manifest.ChunkSize,
			ChunkOverlap:   manifest.ChunkOverlap,
			ChunkCount:     manifest.ChunkCount,
			CreatedAt:      manifest.CreatedAt,
		},
		Chunks: make([]Chunk, len(rows)),
	}
	if manifest.Sources != "" {
		if err := json.Unmarshal([]byte(manifest.Sources), &idx.Manifest.Sources); err != nil {
			return nil, types.NewEvidenceStoreUnavailableError("decode index sources").WithCause(err)
		}
	}

	for i, row := range rows {
		vec, err := decodeEmbedding(row.Embedding, manifest.Dimensions)
		if err != nil {
			return nil, types.NewEvidenceStoreUnavailableError(fmt.Sprintf("chunk %s", row.ID)).WithCause(err)
		}
		var meta map[string]any
		if row.Metadata != "" && row.Metadata != "null" {
			if err := json.Unmarshal([]byte(row.Metadata), &meta); err != nil {
				return nil, types.NewEvidenceStoreUnavailableError(fmt.Sprintf("chunk %s metadata", row.ID)).WithCause(err)
			}
		}
		idx.Chunks[i] = Chunk{
			ID:        row.ID,
			Document:  types.Document{PageContent: row.Content, Metadata: meta},
			Embedding: vec,
		}
	}

	logger.Debug("evidence index loaded",
		zap.String("path", path),
		zap.Int("chunks", len(idx.Chunks)),
		zap.Stringer("identity", found))
	return idx, nil
}

// encodeEmbedding 落盘精度为 float32，小端序
func encodeEmbedding(vec []float64) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
	}
	return buf
}

func decodeEmbedding(buf []byte, dims int) ([]float64, error) {
	if len(buf) != 4*dims {
		return nil, fmt.Errorf("embedding blob has %d bytes, want %d", len(buf), 4*dims)
	}
	vec := make([]float64, dims)
	for i := range vec {
		vec[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:])))
	}
	return vec, nil
}
