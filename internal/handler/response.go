package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/church-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError writes err with the status its AppError code maps to. Errors
// that are not AppErrors become a 500 without internal detail.
func RespondError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(apperrors.StatusOf(err), NewErrorResponse(apperrors.MessageOf(err)))
}
