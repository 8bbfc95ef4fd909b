package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/ffauth/middleware"
	"github.com/gin-gonic/gin"
)

func setAccessCookie(c *gin.Context, token string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessCookieName, token, int(ttl/time.Second), "/", "", c.Request.TLS != nil, true)
}

func clearAccessCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.AccessCookieName, "", -1, "/", "", c.Request.TLS != nil, true)
}
