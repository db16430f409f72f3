package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func ConfigCORS(allowedDomains []string) gin.HandlerFunc {
	config := cors.DefaultConfig()

	if len(allowedDomains) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedDomains
	}

	return cors.New(config)
}
