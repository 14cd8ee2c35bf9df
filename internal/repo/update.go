package repo

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UpdateSet acumula pares coluna/valor de uma atualização parcial na ordem
// em que foram definidos.
type UpdateSet struct {
	entries []SetEntry
}

// SetEntry é uma coluna a ser atualizada.
type SetEntry struct {
	Column string
	Value  any
}

// Set define (ou substitui) o valor de uma coluna. nil grava NULL.
func (u *UpdateSet) Set(column string, value any) {
	for i := range u.entries {
		if u.entries[i].Column == column {
			u.entries[i].Value = value
			return
		}
	}
	u.entries = append(u.entries, SetEntry{Column: column, Value: value})
}

// Len devolve a quantidade de colunas.
func (u UpdateSet) Len() int {
	return len(u.entries)
}

// Get devolve o valor definido para a coluna.
func (u UpdateSet) Get(column string) (any, bool) {
	for _, e := range u.entries {
		if e.Column == column {
			return e.Value, true
		}
	}
	return nil, false
}

// Entries devolve uma cópia das colunas definidas.
func (u UpdateSet) Entries() []SetEntry {
	out := make([]SetEntry, len(u.entries))
	copy(out, u.entries)
	return out
}

// SQL monta o UPDATE com updated_at = now() quando a tabela tem essa coluna.
func (u UpdateSet) SQL(table string, id uuid.UUID, touch bool, returning string) (string, []any) {
	setParts := make([]string, 0, len(u.entries)+1)
	args := make([]any, 0, len(u.entries)+1)
	idx := 1
	for _, e := range u.entries {
		setParts = append(setParts, fmt.Sprintf("%s = $%d", e.Column, idx))
		args = append(args, e.Value)
		idx++
	}
	if touch {
		setParts = append(setParts, "updated_at = now()")
	}
	args = append(args, id)

	query := fmt.Sprintf(`
        UPDATE %s
        SET %s
        WHERE id = $%d
        RETURNING %s
    `, table, strings.Join(setParts, ", "), idx, returning)
	return query, args
}
