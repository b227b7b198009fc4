package scoring

import "fmt"

// InputKind tags an Input.
type InputKind int

const (
	KindContinuous InputKind = iota + 1
	KindDiscreteLevel
)

func (k InputKind) String() string {
	switch k {
	case KindContinuous:
		return "continuous"
	case KindDiscreteLevel:
		return "discrete_level"
	default:
		return fmt.Sprintf("input_kind(%d)", int(k))
	}
}

// Input is a judge's raw selection for one criterion: either a continuous
// value in [0,10] or the base value of a discrete level.
type Input struct {
	Kind  InputKind
	Value float64
}

// Continuous returns a continuous-scale input.
func Continuous(value float64) Input {
	return Input{Kind: KindContinuous, Value: value}
}

// DiscreteLevel returns a level selection by base value.
func DiscreteLevel(baseValue int) Input {
	return Input{Kind: KindDiscreteLevel, Value: float64(baseValue)}
}

// CriterionInput binds an Input to the criterion it grades.
type CriterionInput struct {
	CriterionID string
	Input       Input
}
