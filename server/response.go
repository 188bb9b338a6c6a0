package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicecap/errors"
)

// RespondWithError writes the error envelope. AppErrors keep their status;
// anything else becomes a 500.
func RespondWithError(c *gin.Context, err error) {
	status, body := errors.ToEnvelope(err)
	c.JSON(status, body)
}

// RespondOK sends a 200 with data as the body.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}
