package model

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/samcharles93/seqqa/internal/embedding"
	"github.com/samcharles93/seqqa/internal/logger"
	"github.com/samcharles93/seqqa/internal/rnn"
	"github.com/samcharles93/seqqa/internal/safetensors"
	"github.com/samcharles93/seqqa/internal/tensor"
	"github.com/samcharles93/seqqa/internal/vocab"
)

const (
	tensorEmbedding = "embedding.weight"
	tensorAttention = "decoder.attention.scale"
	tensorDenseW    = "decoder.dense.kernel"
	tensorDenseB    = "decoder.dense.bias"
)

type param struct {
	name string
	mat  *tensor.Mat
}

func (p param) shape() []int {
	if p.mat.R == 1 {
		return []int{p.mat.C}
	}
	return []int{p.mat.R, p.mat.C}
}

// params lists every trainable tensor except the embedding, in a fixed order.
// The matrices share storage with the live model.
func (m *Model) params() ([]param, error) {
	var out []param
	for _, c := range []struct {
		prefix string
		cell   rnn.Cell
	}{
		{"encoder.cell.", m.Encoder.Cell()},
		{"decoder.cell.", m.Decoder.Cell()},
	} {
		pc, ok := c.cell.(rnn.Parameterized)
		if !ok {
			return nil, fmt.Errorf("model: cell %T has no persistable parameters", c.cell)
		}
		for _, p := range pc.Params() {
			out = append(out, param{name: c.prefix + p.Name, mat: p.Mat})
		}
	}
	scale := m.Decoder.Attention().Scale
	scaleMat := tensor.NewMatFromData(1, len(scale), scale)
	fc := m.Decoder.Dense()
	biasMat := tensor.NewMatFromData(1, len(fc.B), fc.B)
	out = append(out,
		param{name: tensorAttention, mat: &scaleMat},
		param{name: tensorDenseW, mat: &fc.W},
		param{name: tensorDenseB, mat: &biasMat},
	)
	return out, nil
}

// Tensors returns copies of all weights in their persisted layout.
func (m *Model) Tensors() ([]safetensors.Tensor, error) {
	ps, err := m.params()
	if err != nil {
		return nil, err
	}
	emb := m.Table.Snapshot()
	out := make([]safetensors.Tensor, 0, len(ps)+1)
	out = append(out, safetensors.Tensor{
		Name:  tensorEmbedding,
		Shape: []int{emb.R, emb.C},
		Data:  emb.Data,
	})
	for _, p := range ps {
		data := make([]float32, 0, p.mat.R*p.mat.C)
		for r := 0; r < p.mat.R; r++ {
			data = append(data, p.mat.Row(r)...)
		}
		out = append(out, safetensors.Tensor{Name: p.name, Shape: p.shape(), Data: data})
	}
	return out, nil
}

// Save writes the model into dir, creating it if needed.
func (m *Model) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := WriteConfig(filepath.Join(dir, ConfigFile), m.Config); err != nil {
		return err
	}

	vf, err := os.Create(filepath.Join(dir, VocabFile))
	if err != nil {
		return err
	}
	if err := m.Vocab.Save(vf); err != nil {
		_ = vf.Close()
		return fmt.Errorf("write vocabulary: %w", err)
	}
	if err := vf.Close(); err != nil {
		return err
	}

	tensors, err := m.Tensors()
	if err != nil {
		return err
	}
	meta := map[string]string{
		"format": formatName,
		"cell":   m.Config.Cell,
	}
	if err := safetensors.WriteFile(filepath.Join(dir, WeightsFile), tensors, meta); err != nil {
		return fmt.Errorf("write weights: %w", err)
	}
	return nil
}

// Load reads a model directory written by Save.
func Load(ctx context.Context, dir string) (*Model, error) {
	log := logger.FromContext(ctx)
	start := time.Now()

	cfg, err := ReadConfig(filepath.Join(dir, ConfigFile))
	if err != nil {
		return nil, err
	}

	vf, err := os.Open(filepath.Join(dir, VocabFile))
	if err != nil {
		return nil, err
	}
	voc, err := vocab.Load(vf)
	_ = vf.Close()
	if err != nil {
		return nil, err
	}

	st, err := safetensors.Open(filepath.Join(dir, WeightsFile))
	if err != nil {
		return nil, fmt.Errorf("open weights: %w", err)
	}
	embData, err := readShaped(st, tensorEmbedding, []int{cfg.VocabSize, cfg.EmbeddingDim})
	if err != nil {
		return nil, err
	}
	table, err := embedding.NewTable(cfg.VocabSize, cfg.EmbeddingDim, embData)
	if err != nil {
		return nil, err
	}

	// Build with placeholder weights, then overwrite every tensor in place.
	m, err := New(cfg, voc, table, 0)
	if err != nil {
		return nil, err
	}
	ps, err := m.params()
	if err != nil {
		return nil, err
	}
	for _, p := range ps {
		data, err := readShaped(st, p.name, p.shape())
		if err != nil {
			return nil, err
		}
		for r := 0; r < p.mat.R; r++ {
			copy(p.mat.Row(r), data[r*p.mat.C:(r+1)*p.mat.C])
		}
	}

	if extra := len(st.Tensors) - len(ps) - 1; extra > 0 {
		log.Warn("weights file has unused tensors", "count", extra)
	}
	log.Debug("model loaded",
		"dir", dir,
		"cell", cfg.Cell,
		"vocab", voc.Size(),
		"tensors", len(ps)+1,
		"elapsed", time.Since(start),
	)
	return m, nil
}

func readShaped(st *safetensors.File, name string, want []int) ([]float32, error) {
	data, info, err := st.ReadTensorF32(name)
	if err != nil {
		return nil, err
	}
	if !slices.Equal(info.Shape, want) {
		return nil, fmt.Errorf("tensor %s: shape %v, want %v", name, info.Shape, want)
	}
	return data, nil
}
