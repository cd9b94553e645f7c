package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/9ooDa/mopic/internal/apierr"
)

type errorBody struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func newErrorBody(err error) errorBody {
	apiErr := apierr.From(err)
	message := apiErr.Error()
	if apiErr.Status == http.StatusInternalServerError && apiErr.Code == apierr.CodeInternal {
		message = "internal server error"
	}
	return errorBody{Message: message, Code: apiErr.Code, Retryable: apiErr.Retryable}
}

// abortWithError writes the error envelope and records err for the request logger.
func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(apierr.From(err).Status, errorResponse{Error: newErrorBody(err)})
}
