package filter

import (
	"context"

	"github.com/rushteam/giftrec/core"
	"github.com/rushteam/giftrec/pkg/dsl"
)

// ExprFilter 用 CEL 表达式过滤，表达式为 false 的物品被移除：
//
//	item.rating >= 3.5 && item.price > 0
type ExprFilter struct {
	prg *dsl.Program
}

// NewExprFilter 编译表达式。
func NewExprFilter(expr string) (*ExprFilter, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{prg: prg}, nil
}

func (f *ExprFilter) Name() string { return "filter.expr" }

// Expr 返回表达式原文。
func (f *ExprFilter) Expr() string { return f.prg.Expr() }

func (f *ExprFilter) ShouldFilter(_ context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error) {
	ok, err := f.prg.Match(item, rctx)
	if err != nil {
		return false, err
	}
	return !ok, nil
}
