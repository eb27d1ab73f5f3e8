package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/cpuid/v2"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/seqqa/internal/model"
	"github.com/samcharles93/seqqa/internal/safetensors"
	"github.com/samcharles93/seqqa/internal/seq2seq"
)

type tensorReport struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
	Shape []int  `json:"shape"`
	Bytes int64  `json:"bytes"`
}

type hostReport struct {
	CPU           string   `json:"cpu"`
	PhysicalCores int      `json:"physical_cores"`
	LogicalCores  int      `json:"logical_cores"`
	GOMAXPROCS    int      `json:"gomaxprocs"`
	Features      []string `json:"features"`
}

type inspectReport struct {
	Dir      string            `json:"dir"`
	Config   seq2seq.Config    `json:"config"`
	Params   int64             `json:"params"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Tensors  []tensorReport    `json:"tensors"`
	Host     *hostReport       `json:"host,omitempty"`
}

func inspectCmd() *cli.Command {
	var (
		asJSON   bool
		showHost bool
		filter   string
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Show a model's configuration and weight tensors",
		Flags: append(modelFlags(),
			&cli.BoolFlag{Name: "json", Usage: "print the report as JSON", Destination: &asJSON},
			&cli.BoolFlag{Name: "host", Usage: "include host CPU details", Destination: &showHost},
			&cli.StringFlag{Name: "filter", Usage: "only list tensors whose name contains this", Destination: &filter},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := requireModelDir(modelDir, fileConfig)
			if err != nil {
				return err
			}
			rep, err := inspectModel(dir, filter)
			if err != nil {
				return err
			}
			if showHost {
				h := inspectHost()
				rep.Host = &h
			}
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			printReport(rep)
			return nil
		},
	}
}

func inspectModel(dir, filter string) (inspectReport, error) {
	cfg, err := model.ReadConfig(filepath.Join(dir, model.ConfigFile))
	if err != nil {
		return inspectReport{}, err
	}
	st, err := safetensors.Open(filepath.Join(dir, model.WeightsFile))
	if err != nil {
		return inspectReport{}, err
	}
	rep := inspectReport{Dir: dir, Config: cfg, Metadata: st.Metadata}
	names := make([]string, 0, len(st.Tensors))
	for name := range st.Tensors {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		info := st.Tensors[name]
		n := int64(1)
		for _, d := range info.Shape {
			n *= int64(d)
		}
		rep.Params += n
		if filter != "" && !strings.Contains(name, filter) {
			continue
		}
		rep.Tensors = append(rep.Tensors, tensorReport{
			Name:  name,
			DType: info.DType,
			Shape: info.Shape,
			Bytes: info.End - info.Start,
		})
	}
	return rep, nil
}

func inspectHost() hostReport {
	h := hostReport{
		CPU:           cpuid.CPU.BrandName,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		GOMAXPROCS:    runtime.GOMAXPROCS(0),
	}
	for _, f := range []struct {
		name string
		id   cpuid.FeatureID
	}{
		{"sse4.2", cpuid.SSE42},
		{"avx", cpuid.AVX},
		{"avx2", cpuid.AVX2},
		{"fma3", cpuid.FMA3},
		{"avx512f", cpuid.AVX512F},
		{"asimd", cpuid.ASIMD},
	} {
		if cpuid.CPU.Supports(f.id) {
			h.Features = append(h.Features, f.name)
		}
	}
	return h
}

func printReport(rep inspectReport) {
	c := rep.Config
	fmt.Printf("model:            %s\n", rep.Dir)
	fmt.Printf("cell:             %s\n", c.Cell)
	fmt.Printf("vocab_size:       %d\n", c.VocabSize)
	fmt.Printf("embedding_dim:    %d\n", c.EmbeddingDim)
	fmt.Printf("units:            %d\n", c.Units)
	fmt.Printf("batch_size:       %d\n", c.BatchSize)
	fmt.Printf("max_question_len: %d\n", c.MaxQuestionLen)
	fmt.Printf("max_answer_len:   %d\n", c.MaxAnswerLen)
	fmt.Printf("mask_mode:        %s\n", c.MaskMode)
	fmt.Printf("zero_masked:      %t\n", c.ZeroMaskedOutputs)
	fmt.Printf("params:           %d\n", rep.Params)

	if len(rep.Metadata) > 0 {
		fmt.Println("\nmetadata:")
		keys := make([]string, 0, len(rep.Metadata))
		for k := range rep.Metadata {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", k, rep.Metadata[k])
		}
	}

	fmt.Printf("\ntensors (%d):\n", len(rep.Tensors))
	for _, t := range rep.Tensors {
		fmt.Printf("  %-28s %-4s %-12v %d bytes\n", t.Name, t.DType, t.Shape, t.Bytes)
	}

	if h := rep.Host; h != nil {
		fmt.Println("\nhost:")
		fmt.Printf("  cpu:        %s\n", h.CPU)
		fmt.Printf("  cores:      %d physical, %d logical\n", h.PhysicalCores, h.LogicalCores)
		fmt.Printf("  gomaxprocs: %d\n", h.GOMAXPROCS)
		fmt.Printf("  features:   %s\n", strings.Join(h.Features, " "))
	}
}
