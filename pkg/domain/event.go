package domain

// Event representa um fato já ocorrido no sistema.
type Event[T any] interface {
	EventName() string
	Payload() T
}
