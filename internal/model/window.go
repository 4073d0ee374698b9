package model

import "fmt"

// Window полуоткрытый интервал [Start, End) внутри одного дня
type Window struct {
	Start Clock `json:"start"`
	End   Clock `json:"end"`
}

// Validate проверяет что окно не пустое и лежит в пределах суток
func (w Window) Validate() error {
	if !w.Start.Valid() || !w.End.Valid() || w.Start == MinutesPerDay {
		return fmt.Errorf("%w: window %s is outside of the day", ErrValidation, w)
	}
	if w.Start >= w.End {
		return fmt.Errorf("%w: window start %s must be before end %s", ErrValidation, w.Start, w.End)
	}
	return nil
}

// Overlaps единственный предикат конфликта двух окон: A.start < B.end && B.start < A.end.
// Окна встык (A.End == B.Start) не пересекаются.
func (w Window) Overlaps(o Window) bool {
	return w.Start < o.End && o.Start < w.End
}

func (w Window) Minutes() int {
	return int(w.End - w.Start)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start, w.End)
}
