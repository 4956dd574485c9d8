package checklist

import (
	"context"
	"fmt"
	"sort"

	"liftkeeper/internal/domain/gateway"
)

// AppliesIn сообщает, задается ли вопрос такой периодичности в указанном месяце.
func (f Frequency) AppliesIn(month int) bool {
	switch f {
	case Monthly:
		return true
	case Quarterly:
		return month == 3 || month == 6 || month == 9 || month == 12
	case Semiannual:
		return month == 3 || month == 9
	}
	return false
}

// Applies сообщает, входит ли вопрос в осмотр данного месяца и типа лифта.
func (q Question) Applies(month int, hydraulic bool) bool {
	if q.HydraulicOnly && !hydraulic {
		return false
	}
	return q.Frequency.AppliesIn(month)
}

// Filter возвращает применимые вопросы, упорядоченные по SequenceNumber.
// Исходный срез не меняется.
func Filter(catalog []Question, month int, hydraulic bool) []Question {
	out := make([]Question, 0, len(catalog))
	for _, q := range catalog {
		if q.Applies(month, hydraulic) {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SequenceNumber < out[j].SequenceNumber
	})
	return out
}

// Section - группа вопросов для отображения.
type Section struct {
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// GroupBySection группирует вопросы по разделам в порядке первого появления раздела.
func GroupBySection(questions []Question) []Section {
	var sections []Section
	index := make(map[string]int)
	for _, q := range questions {
		i, ok := index[q.Section]
		if !ok {
			i = len(sections)
			index[q.Section] = i
			sections = append(sections, Section{Name: q.Section})
		}
		sections[i].Questions = append(sections[i].Questions, q)
	}
	return sections
}

// LoadCatalog читает весь каталог вопросов.
func LoadCatalog(ctx context.Context, gw gateway.Gateway) ([]Question, error) {
	rows, err := gw.Select(ctx, gateway.TableChecklistQuestions, gateway.All().OrderAsc("sequence_number"))
	if err != nil {
		return nil, fmt.Errorf("load checklist catalog: %w", err)
	}
	questions, err := gateway.DecodeAll[Question](rows)
	if err != nil {
		return nil, fmt.Errorf("load checklist catalog: %w", err)
	}
	return questions, nil
}
