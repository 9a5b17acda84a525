//go:build !release
// +build !release

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/yeti47/annotator/server/core/config"
)

// initializeGin sets up Gin in debug mode for development builds
func initializeGin(cfg *config.Config) *gin.Engine {
	router := gin.New()

	// development builds trust all proxies unless some are configured
	if len(cfg.TrustedProxies) > 0 {
		router.SetTrustedProxies(cfg.TrustedProxies)
	}

	return router
}
