package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/giftrec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Program 是编译后的过滤表达式，使用 CEL (Common Expression Language)。
// 编译一次，可并发对多个 Item 求值。
//
// 可用变量：
//   - item.id / item.score / item.title / item.department / item.category
//   - item.price / item.rating / item.popularity / item.age_group
//   - label.<key>（label value，不存在时需用 has() 或 in 判断）
//   - rctx.user_id / rctx.scene / rctx.params
//
// 示例：
//   - `item.rating >= 4.0`
//   - `item.department == "Electronics" && item.price < 100.0`
//   - `"match_type" in label && label.match_type == "personalized"`
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式。表达式必须返回 bool。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return nil, fmt.Errorf("compile %q: expression must return bool, got %v", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// Expr 返回原始表达式。
func (p *Program) Expr() string { return p.expr }

// Match 对单个 Item 求值。
func (p *Program) Match(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	out, _, err := p.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", p.expr, err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("eval %q: expression must return bool, got %T", p.expr, out.Value())
	}
	return result, nil
}

func buildInput(it *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any, len(it.Labels))
	for k, v := range it.Labels {
		labels[k] = v.Value
	}

	item := map[string]any{
		"id":    it.ID,
		"score": it.Score,
	}
	if p := it.Product; p != nil {
		item["title"] = p.Title
		item["department"] = p.Department
		item["category"] = p.Category
		item["price"] = p.Price
		item["rating"] = p.Rating
		item["popularity"] = p.Popularity
		item["age_group"] = p.AgeGroup
	}

	ctxMap := map[string]any{}
	if rctx != nil {
		ctxMap["user_id"] = rctx.UserID
		ctxMap["scene"] = rctx.Scene
		params := rctx.Params
		if params == nil {
			params = map[string]any{}
		}
		ctxMap["params"] = params
	}

	return map[string]any{
		"item":  item,
		"label": labels,
		"rctx":  ctxMap,
	}
}
