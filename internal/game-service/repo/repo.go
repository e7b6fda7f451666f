// Package repo persiste jogos, bilhetes, reservas e ganhadores.
// Postgres é a implementação de produção; Memory aplica as mesmas restrições
// de unicidade e serve aos testes e ao modo local.
package repo

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrTicketAlreadyBooked = errors.New("ticket already booked")
	// ErrConcurrentUpdate: outra escrita mudou o jogo entre a leitura e o update
	ErrConcurrentUpdate = errors.New("concurrent update")
)
