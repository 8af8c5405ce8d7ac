package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Типы переменных процесса.
const (
	TypeBoolean = "Boolean"
	TypeString  = "String"
	TypeInteger = "Integer"
	TypeLong    = "Long"
	TypeDouble  = "Double"
	TypeJSON    = "Json"
	TypeNull    = "Null"
)

// Variable — типизированная переменная процесса в формате engine.
type Variable struct {
	Value     any            `json:"value"`
	Type      string         `json:"type"`
	ValueInfo map[string]any `json:"valueInfo,omitempty"`
}

// EncodeVariable кодирует значение Go в переменную engine.
//
// Структуры, карты и срезы уходят как Json (строка с JSON).
func EncodeVariable(value any) (Variable, error) {
	switch v := value.(type) {
	case nil:
		return Variable{Type: TypeNull}, nil
	case bool:
		return Variable{Value: v, Type: TypeBoolean}, nil
	case string:
		return Variable{Value: v, Type: TypeString}, nil
	case int:
		return Variable{Value: int64(v), Type: TypeLong}, nil
	case int32:
		return Variable{Value: v, Type: TypeInteger}, nil
	case int64:
		return Variable{Value: v, Type: TypeLong}, nil
	case float32:
		return Variable{Value: float64(v), Type: TypeDouble}, nil
	case float64:
		return Variable{Value: v, Type: TypeDouble}, nil
	case json.RawMessage:
		return Variable{Value: string(v), Type: TypeJSON}, nil
	case Variable:
		return v, nil
	}

	b, err := json.Marshal(value)
	if err != nil {
		return Variable{}, fmt.Errorf("%w: %T: %v", ErrUnsupportedVariable, value, err)
	}
	return Variable{Value: string(b), Type: TypeJSON}, nil
}

// EncodeVariables кодирует набор переменных.
func EncodeVariables(values map[string]any) (map[string]Variable, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]Variable, len(values))
	for name, value := range values {
		v, err := EncodeVariable(value)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

// DecodeVariable возвращает значение переменной в виде Go-значения.
//
// Json → json.RawMessage, Integer/Long → int64, остальное как пришло.
func DecodeVariable(v Variable) any {
	switch v.Type {
	case TypeNull:
		return nil
	case TypeJSON:
		switch raw := v.Value.(type) {
		case string:
			return json.RawMessage(raw)
		case nil:
			return nil
		default:
			b, _ := json.Marshal(raw)
			return json.RawMessage(b)
		}
	case TypeInteger, TypeLong:
		switch n := v.Value.(type) {
		case float64:
			return int64(n)
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return i
			}
		case string:
			if i, err := strconv.ParseInt(n, 10, 64); err == nil {
				return i
			}
		}
	}
	return v.Value
}

// DecodeVariables декодирует набор переменных.
func DecodeVariables(vars map[string]Variable) map[string]any {
	out := make(map[string]any, len(vars))
	for name, v := range vars {
		out[name] = DecodeVariable(v)
	}
	return out
}
