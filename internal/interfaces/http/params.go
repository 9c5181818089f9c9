package http

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"reservations/internal/entities"
)

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s is not a valid UUID: %w", name, entities.ErrInvalidArgument)
	}
	return id, nil
}

func bindAndValidate(c echo.Context, request any) error {
	if err := c.Bind(request); err != nil {
		return err
	}
	return c.Validate(request)
}
