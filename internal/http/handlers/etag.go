package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// respondRevalidated answers with an ETag over the JSON payload and a 304 when
// the client already holds it. Menus change only on a role switch, so a
// polling client mostly gets 304s.
func respondRevalidated(ctx *gin.Context, payload interface{}) {
	tag, err := payloadTag(payload)
	if err != nil {
		ctx.JSON(http.StatusOK, payload)
		return
	}

	// per user, so never shared; the client must revalidate every time
	ctx.Header("Cache-Control", "private, no-cache")
	ctx.Header("ETag", tag)

	if matchesTag(ctx.GetHeader("If-None-Match"), tag) {
		ctx.Status(http.StatusNotModified)
		return
	}

	ctx.JSON(http.StatusOK, payload)
}

func payloadTag(payload interface{}) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}

func matchesTag(header, tag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}

	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		// weak comparison
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == tag {
			return true
		}
	}
	return false
}
