package serverutils

import (
	"errors"

	"studyrag-be/pkg/rag"
	"studyrag-be/pkg/rag/chat"
	"studyrag-be/pkg/rag/quiz"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
)

// StatusFor maps domain errors onto HTTP statuses.
func StatusFor(err error) int {
	var fe *fiber.Error
	var ve *ValidationError
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &ve), errors.Is(err, ErrInvalidInput), errors.Is(err, chat.ErrEmptyQuestion):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, quiz.ErrNoActiveChunks):
		return fiber.StatusNotFound
	case errors.Is(err, quiz.ErrEmptyContext):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, rag.ErrRetrieval), errors.Is(err, rag.ErrGeneration),
		errors.Is(err, rag.ErrCollapseLimit), errors.Is(err, rag.ErrUnitExceedsCeiling),
		errors.Is(err, rag.ErrRerank), errors.Is(err, quiz.ErrInvalidPacket):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		code := StatusFor(err)
		message := err.Error()
		if code == fiber.StatusInternalServerError {
			message = "internal server error"
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
