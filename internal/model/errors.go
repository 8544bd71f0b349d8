package model

import (
	"fmt"
	"net/http"
)

// APIError is a user-facing relay failure carrying the HTTP status the
// handler responds with. Messages are surfaced verbatim to the UI.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return e.Message
}

func NewAPIError(status int, message string) *APIError {
	return &APIError{Status: status, Message: message}
}

// ErrNoProviderConfigured is returned when neither the request nor the server
// configuration carries a provider key.
var ErrNoProviderConfigured = &APIError{
	Status:  http.StatusBadRequest,
	Message: "Nenhuma API configurada",
}

// MapUpstreamStatus translates a provider's pre-stream HTTP failure into the
// fixed user-facing message for that class. Auth, rate-limit and billing
// failures keep their status; everything else becomes a 500 with the raw
// upstream status in the message. No retries anywhere.
func MapUpstreamStatus(status int) *APIError {
	switch status {
	case http.StatusUnauthorized:
		return &APIError{
			Status:  http.StatusUnauthorized,
			Message: "Token da API inválido. Verifique a chave configurada.",
		}
	case http.StatusTooManyRequests:
		return &APIError{
			Status:  http.StatusTooManyRequests,
			Message: "Limite de requisições atingido. Tente novamente em instantes.",
		}
	case http.StatusPaymentRequired:
		return &APIError{
			Status:  http.StatusPaymentRequired,
			Message: "Créditos insuficientes no provedor de IA.",
		}
	default:
		return &APIError{
			Status:  http.StatusInternalServerError,
			Message: fmt.Sprintf("Erro no provedor de IA (status %d)", status),
		}
	}
}
