package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gestaozabele/clinica/internal/auth"
	"github.com/gestaozabele/clinica/internal/service"
)

const maxJSONBody = 1 << 20

// decodeJSON lê o corpo em dst. Campos desconhecidos e erros de sintaxe ou
// de tipo viram ValidationError com o campo, quando o decoder informa.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decode(w, r, dst, false)
}

// decodeOptionalJSON aceita corpo vazio.
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return decode(w, r, dst, true)
}

func decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		if optional {
			return nil
		}
		return &service.ValidationError{Message: "corpo da requisição vazio"}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &service.ValidationError{
			Message: "dados inválidos",
			Issues:  []service.Issue{{Field: typeErr.Field, Message: "tipo inválido"}},
		}
	}
	if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return &service.ValidationError{
			Message: "dados inválidos",
			Issues:  []service.Issue{{Field: strings.Trim(field, `"`), Message: "campo não permitido"}},
		}
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return &service.ValidationError{Message: "corpo da requisição muito grande"}
	}
	return &service.ValidationError{Message: "JSON inválido: " + err.Error()}
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, &service.ValidationError{Message: "identificador inválido"}
	}
	return id, nil
}

// query acumula problemas de parsing da query string.
type query struct {
	values url.Values
	issues []service.Issue
}

func newQuery(r *http.Request) *query {
	return &query{values: r.URL.Query()}
}

func (q *query) str(name string) string {
	return strings.TrimSpace(q.values.Get(name))
}

func (q *query) fail(name, message string) {
	q.issues = append(q.issues, service.Issue{Field: name, Message: message})
}

func (q *query) uuid(name string) *uuid.UUID {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		q.fail(name, "identificador inválido")
		return nil
	}
	return &id
}

func (q *query) date(name string) *time.Time {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	t, err := service.ParseDate(raw)
	if err != nil {
		q.fail(name, err.Error())
		return nil
	}
	return &t
}

func (q *query) int(name string) int {
	raw := q.str(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		q.fail(name, "deve ser um inteiro não negativo")
		return 0
	}
	return n
}

func (q *query) bool(name string) *bool {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name, "deve ser true ou false")
		return nil
	}
	return &b
}

func (q *query) err() error {
	if len(q.issues) == 0 {
		return nil
	}
	return &service.ValidationError{Message: "filtros inválidos", Issues: q.issues}
}

// queryEnum lê um enum da query string e valida com o Valid do tipo.
func queryEnum[T ~string](q *query, name string, valid func(T) bool) *T {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	v := T(raw)
	if !valid(v) {
		q.fail(name, "valor inválido: "+raw)
		return nil
	}
	return &v
}
