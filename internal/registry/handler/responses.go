package handler

// Client-facing error messages.
const (
	MsgInvalidNIP  = "Nieprawidłowy format NIP"
	MsgNotFound    = "Nie znaleziono podmiotu o podanym NIP"
	MsgServerError = "Błąd serwera"
)

type ErrorResponse struct {
	Error string `json:"error"`
}
