package util

import "time"

// Clock permite substituir o relógio em testes.
type Clock func() time.Time

// Now é o relógio padrão da aplicação.
var Now Clock = func() time.Time {
	return time.Now()
}

// StartOfDay trunca o horário mantendo a localização.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfMonth retorna o primeiro instante do mês de t.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// StartOfQuarter retorna o primeiro instante do trimestre civil de t.
func StartOfQuarter(t time.Time) time.Time {
	month := ((int(t.Month())-1)/3)*3 + 1
	return time.Date(t.Year(), time.Month(month), 1, 0, 0, 0, 0, t.Location())
}

// StartOfYear retorna 1º de janeiro do ano de t.
func StartOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}
