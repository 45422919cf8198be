package infrastructure

import (
	"github.com/google/uuid"
)

// GenerateUUID é o IDGenerator padrão do serviço.
func GenerateUUID() string {
	return uuid.New().String()
}
