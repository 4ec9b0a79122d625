package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/pipeline"
)

// 后处理 Pipeline 只允许 filter.* 与 rerank.* 两类节点：召回与排序由降级层级固定生成，
// 配置文件只能在其后追加规则。内置节点在 config/builders 的 init 中注册。

// NodeBuilder 根据节点 config 构建后处理 Node。
type NodeBuilder = pipeline.NodeBuilder

var postProcessPrefixes = []string{"filter", "rerank"}

var registry = struct {
	sync.RWMutex
	builders map[string]NodeBuilder
}{builders: make(map[string]NodeBuilder)}

func postProcessType(name string) bool {
	for _, p := range postProcessPrefixes {
		if name == p || strings.HasPrefix(name, p+".") {
			return true
		}
	}
	return false
}

// Register 登记一个后处理节点类型。类型名必须以 filter 或 rerank 开头，否则 panic。
func Register(name string, builder NodeBuilder) {
	if builder == nil {
		return
	}
	if !postProcessType(name) {
		panic(fmt.Sprintf("config: %q is not a post-process node type", name))
	}
	registry.Lock()
	registry.builders[name] = builder
	registry.Unlock()
}

func lookup(name string) (NodeBuilder, bool) {
	registry.RLock()
	defer registry.RUnlock()
	b, ok := registry.builders[name]
	return b, ok
}

// SupportedTypes 返回已登记的节点类型，按名字排序。
func SupportedTypes() []string {
	registry.RLock()
	names := make([]string, 0, len(registry.builders))
	for name := range registry.builders {
		names = append(names, name)
	}
	registry.RUnlock()
	sort.Strings(names)
	return names
}

// DefaultFactory 用当前登记表生成一个 NodeFactory 快照。
func DefaultFactory() *pipeline.NodeFactory {
	f := pipeline.NewNodeFactory()
	registry.RLock()
	for name, b := range registry.builders {
		f.Register(name, b)
	}
	registry.RUnlock()
	return f
}

// ValidatePipelineConfig 一次性列出所有未登记的节点类型。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	var unknown []string
	for i, nc := range cfg.Pipeline.Nodes {
		if nc.Type == "" {
			unknown = append(unknown, fmt.Sprintf("nodes[%d].type", i))
			continue
		}
		if _, ok := lookup(nc.Type); !ok {
			unknown = append(unknown, nc.Type)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return core.NewValidationError(core.ModuleConfig,
		fmt.Sprintf("unsupported post-process nodes (supported: %s)", strings.Join(SupportedTypes(), ", ")),
		unknown...)
}

// LoadPipeline 读取后处理 Pipeline 配置（YAML/JSON）并构建。
func LoadPipeline(path string) (*pipeline.Pipeline, error) {
	cfg, err := pipeline.Load(path)
	if err != nil {
		return nil, core.NewSystemError(core.ModuleConfig, "load pipeline "+path, err)
	}
	if err := ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	p, err := cfg.BuildPipeline(DefaultFactory())
	if err != nil {
		return nil, core.NewValidationError(core.ModuleConfig, err.Error(), "pipeline.nodes")
	}
	return p, nil
}
