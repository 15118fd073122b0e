package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func options(c *gin.Context, methods string) {
	c.Header("allow", "OPTIONS, "+methods)
	c.Status(http.StatusNoContent)
}

func OptionsGet(c *gin.Context) {
	options(c, "GET")
}

func OptionsPost(c *gin.Context) {
	options(c, "POST")
}

func OptionsGetPost(c *gin.Context) {
	options(c, "GET, POST")
}

func OptionsGetPut(c *gin.Context) {
	options(c, "GET, PUT")
}

func OptionsPostDelete(c *gin.Context) {
	options(c, "POST, DELETE")
}

func OptionsGetDelete(c *gin.Context) {
	options(c, "GET, DELETE")
}

func OptionsGetPatchDelete(c *gin.Context) {
	options(c, "GET, PATCH, DELETE")
}
