// Package healthz reports if the service can reach its store.
package healthz

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/immoledger/backend/internal/httputil"
	"github.com/immoledger/backend/internal/models"
)

// RegisterRoutes registers the routes for the healthz endpoint.
func RegisterRoutes(r *gin.RouterGroup) {
	r.OPTIONS("", Options)
	r.GET("", Get)
}

// Options returns the allowed HTTP verbs
//
//	@Summary		Allowed HTTP verbs
//	@Description	Returns an empty response with the HTTP Header "allow" set to the allowed HTTP verbs
//	@Tags			General
//	@Success		204
//	@Router			/healthz [options]
func Options(c *gin.Context) {
	httputil.OptionsGet(c)
}

type Response struct {
	Error string `json:"error" example:"the database cannot be accessed"` // The error, if any occurred
}

// Get returns data about the application health
//
//	@Summary		Get health
//	@Description	Returns the application health and, if not healthy, an error
//	@Tags			General
//	@Produce		json
//	@Success		200	{object}	Response
//	@Failure		500	{object}	Response
//	@Router			/healthz [get]
func Get(c *gin.Context) {
	sqlDB, err := models.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}

	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{
			Error: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{})
}
