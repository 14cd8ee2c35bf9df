package service

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/repo"
	"github.com/gestaozabele/clinica/internal/util"
)

// Patch é o corpo de um PUT/PATCH parcial.
type Patch map[string]json.RawMessage

type decodeFunc func(json.RawMessage) (any, error)

type patchField struct {
	column string
	decode decodeFunc
}

// patchSpec lista os campos editáveis de uma entidade.
type patchSpec map[string]patchField

var errNull = errors.New("não pode ser nulo")

// build converte o patch em UpdateSet. Campos desconhecidos ou com tipo
// errado viram itens da ValidationError.
func (s patchSpec) build(p Patch) (repo.UpdateSet, error) {
	var (
		set  repo.UpdateSet
		errs issues
	)

	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		field, ok := s[key]
		if !ok {
			errs.add(key, "campo não permitido")
			continue
		}
		value, err := field.decode(p[key])
		if err != nil {
			errs.add(key, err.Error())
			continue
		}
		set.Set(field.column, value)
	}
	return set, errs.err()
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

func text(raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return nil, errNull
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.New("deve ser texto")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("obrigatório")
	}
	return s, nil
}

func optText(raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return (*string)(nil), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.New("deve ser texto")
	}
	return trimmed(&s), nil
}

func stateCode(raw json.RawMessage) (any, error) {
	v, err := text(raw)
	if err != nil {
		return nil, err
	}
	state := strings.ToUpper(v.(string))
	if err := util.ValidateStateCode(state); err != nil {
		return nil, err
	}
	return state, nil
}

func number(raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return nil, errNull
	}
	v, err := parseNumber(raw)
	if err != nil {
		return nil, err
	}
	if v < 0 {
		return nil, errors.New("não pode ser negativo")
	}
	return v, nil
}

func optNumber(raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return (*float64)(nil), nil
	}
	v, err := number(raw)
	if err != nil {
		return nil, err
	}
	f := v.(float64)
	return &f, nil
}

func integer(raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return nil, errNull
	}
	var i Int
	if err := i.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	if i < 0 {
		return nil, errors.New("não pode ser negativo")
	}
	return int(i), nil
}

func boolean(raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return nil, errNull
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, errors.New("deve ser verdadeiro ou falso")
	}
	return b, nil
}

func requiredUUID(raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return nil, errNull
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.New("deve ser um identificador")
	}
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.New("identificador inválido")
	}
	return id, nil
}

func optUUID(raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return (*uuid.UUID)(nil), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, errors.New("deve ser um identificador")
	}
	id, err := util.ParseOptionalUUID(&s)
	if err != nil {
		return nil, errors.New("identificador inválido")
	}
	return id, nil
}

func date(raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return nil, errNull
	}
	var d Date
	if err := d.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return d.Time, nil
}

func optDate(raw json.RawMessage) (any, error) {
	if isNull(raw) {
		return (*time.Time)(nil), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) == "" {
		return (*time.Time)(nil), nil
	}
	v, err := date(raw)
	if err != nil {
		return nil, err
	}
	t := v.(time.Time)
	return &t, nil
}

// enum decodifica um valor obrigatório de um tipo enumerado.
func enum[T ~string](valid func(T) bool) decodeFunc {
	return func(raw json.RawMessage) (any, error) {
		if isNull(raw) {
			return nil, errNull
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errors.New("deve ser texto")
		}
		v := T(strings.TrimSpace(s))
		if !valid(v) {
			return nil, errors.New("valor inválido: " + s)
		}
		return v, nil
	}
}

// optEnum aceita null para limpar a coluna.
func optEnum[T ~string](valid func(T) bool) decodeFunc {
	required := enum(valid)
	return func(raw json.RawMessage) (any, error) {
		if isNull(raw) {
			return (*T)(nil), nil
		}
		v, err := required(raw)
		if err != nil {
			return nil, err
		}
		t := v.(T)
		return &t, nil
	}
}
