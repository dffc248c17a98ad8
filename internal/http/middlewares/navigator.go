package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Redirect is the JSON body handed to the SPA router.
type Redirect struct {
	State    string `json:"state"`
	Redirect string `json:"redirect"`
	Replace  bool   `json:"replace"`
}

// Navigator is the one place a request is turned into a client-side
// navigation. Browser navigations get a 303; API clients get a JSON
// instruction with the given status.
type Navigator struct {
	c      *gin.Context
	status int
	state  string
}

func NewNavigator(c *gin.Context, status int, state string) *Navigator {
	return &Navigator{c: c, status: status, state: state}
}

func (n *Navigator) Navigate(target string, replace bool) {
	if wantsHTML(n.c) {
		n.c.Redirect(http.StatusSeeOther, target)
		n.c.Abort()
		return
	}

	n.c.AbortWithStatusJSON(n.status, Redirect{
		State:    n.state,
		Redirect: target,
		Replace:  replace,
	})
}

func wantsHTML(c *gin.Context) bool {
	if c.GetHeader("Accept") == "" {
		return false
	}
	return c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEHTML
}
