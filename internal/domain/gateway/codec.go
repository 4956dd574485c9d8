package gateway

import (
	"encoding/json"
	"fmt"

	"liftkeeper/internal/domain/validation"
)

// Encode превращает типизированную запись в Row по json-тегам.
func Encode(src any) (Row, error) {
	data, err := json.Marshal(src)
	if err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	var row Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("encode row: %w", err)
	}
	return row, nil
}

// Decode заполняет типизированную запись из Row и проверяет ее validate-теги.
// Строки, не прошедшие проверку, отклоняются с ErrMalformedRow.
func Decode(row Row, dst any) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	if err := validation.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	return nil
}

// DecodeAll декодирует набор строк; первая некорректная строка прерывает разбор.
func DecodeAll[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		var v T
		if err := Decode(row, &v); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Clone возвращает поверхностную копию строки.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
