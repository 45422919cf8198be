package domain

// IDGenerator produz identificadores novos para entidades e transações.
type IDGenerator[T comparable] func() T
