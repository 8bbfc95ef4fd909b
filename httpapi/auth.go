package httpapi

import (
	"github.com/MrEthical07/ffauth"
	"github.com/MrEthical07/ffauth/middleware"
	"github.com/gin-gonic/gin"
)

// RequireAuth rejects requests without a valid access token and stores the
// principal in the request context for downstream handlers.
func RequireAuth(engine *ffauth.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		if engine == nil {
			abort(c, ffauth.ErrAuthRequired)
			return
		}

		p, err := engine.Authorize(c.Request.Context(), middleware.TokenFromRequest(c.Request))
		if err != nil {
			abort(c, err)
			return
		}

		c.Request = c.Request.WithContext(ffauth.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// CurrentPrincipal returns the principal set by RequireAuth.
func CurrentPrincipal(c *gin.Context) (ffauth.Principal, bool) {
	return ffauth.PrincipalFromContext(c.Request.Context())
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(ffauth.ErrorStatus(err), middleware.NewErrorBody(err))
}
