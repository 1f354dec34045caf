package types

type ExprType string

const (
	ExprGroup  ExprType = "group"
	ExprClause ExprType = "clause"
)

type LogicOperator string

const (
	OpAnd LogicOperator = "AND"
	OpOr  LogicOperator = "OR"
)

type Comparator string

const (
	CmpGT  Comparator = ">"
	CmpGTE Comparator = ">="
	CmpLT  Comparator = "<"
	CmpLTE Comparator = "<="
	CmpEQ  Comparator = "=="
	CmpNEQ Comparator = "!="
)

// Compare applies the comparator to two resolved operand values. An unknown
// comparator evaluates false.
func (c Comparator) Compare(left, right float64) bool {
	switch c {
	case CmpGT:
		return left > right
	case CmpGTE:
		return left >= right
	case CmpLT:
		return left < right
	case CmpLTE:
		return left <= right
	case CmpEQ:
		return left == right
	case CmpNEQ:
		return left != right
	}
	return false
}

type OperandType string

const (
	OperandValue     OperandType = "value"
	OperandIndicator OperandType = "indicator"
)

// Operand is either a literal number or a reference to a computed indicator
// series, discriminated by Type.
type Operand struct {
	Type      OperandType         `json:"type"`
	Value     float64             `json:"value,omitempty"`
	Indicator *IndicatorReference `json:"indicator,omitempty"`
}

/**
 * ConditionExpr is the boolean expression tree carried in conditional node
 * metadata. Type discriminates the two shapes sharing this struct:
 *   group:  Operator is AND/OR over Conditions
 *   clause: Operator is a Comparator over Left and Right
 * The JSON shape is stable across the persistence boundary.
 */
type ConditionExpr struct {
	Type       ExprType         `json:"type"`
	Operator   string           `json:"operator"`
	Conditions []*ConditionExpr `json:"conditions,omitempty"`
	Left       *Operand         `json:"left,omitempty"`
	Right      *Operand         `json:"right,omitempty"`
}

func (e *ConditionExpr) IsGroup() bool {
	return e != nil && e.Type == ExprGroup
}

// References walks the tree and collects every indicator operand.
func (e *ConditionExpr) References() []IndicatorReference {
	if e == nil {
		return nil
	}
	refs := make([]IndicatorReference, 0, 4)
	var walk func(expr *ConditionExpr)
	walk = func(expr *ConditionExpr) {
		if expr == nil {
			return
		}
		if expr.IsGroup() {
			for _, child := range expr.Conditions {
				walk(child)
			}
			return
		}
		for _, op := range []*Operand{expr.Left, expr.Right} {
			if op != nil && op.Type == OperandIndicator && op.Indicator != nil {
				ref := *op.Indicator
				ref.Market = NormalizeMarket(string(ref.Market))
				refs = append(refs, ref)
			}
		}
	}
	walk(e)
	return refs
}

// Group is a convenience constructor used by tests and the authoring
// boundary.
func Group(op LogicOperator, conditions ...*ConditionExpr) *ConditionExpr {
	return &ConditionExpr{Type: ExprGroup, Operator: string(op), Conditions: conditions}
}

func Clause(left Operand, cmp Comparator, right Operand) *ConditionExpr {
	l, r := left, right
	return &ConditionExpr{Type: ExprClause, Operator: string(cmp), Left: &l, Right: &r}
}

func ValueOperand(v float64) Operand {
	return Operand{Type: OperandValue, Value: v}
}

func IndicatorOperand(ref IndicatorReference) Operand {
	return Operand{Type: OperandIndicator, Indicator: &ref}
}
