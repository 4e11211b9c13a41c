package models

// User идентичность пользователя, полученная от внешнего провайдера аутентификации.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
