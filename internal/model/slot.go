package model

// Slot конкретное окно на дату с остатком вместимости. Результат подсказка
// для отображения, а не гарантия: занятость перепроверяется при записи.
type Slot struct {
	Start             Clock `json:"start"`
	End               Clock `json:"end"`
	AvailableCapacity int   `json:"available_capacity"`
}

func (s Slot) Window() Window {
	return Window{Start: s.Start, End: s.End}
}
