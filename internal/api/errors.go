package api

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/lalith-99/chatelio/internal/apperr"
	"go.uber.org/zap"
)

// Report binding failures under the JSON field name.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// fieldError is one entry of a 422 body.
type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// writeError maps a service error to its status and {"detail": ...} body.
// The wrapped cause is logged, never returned.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("kind", kind.String()),
			zap.Error(err),
		)
	}
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.JSON(status, gin.H{"detail": apperr.PublicDetail(err)})
}

// writeBindError answers a body that failed binding with 422.
func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []fieldError{{
			Loc:  []string{"body"},
			Msg:  "invalid request body",
			Type: "value_error.json",
		}}})
		return
	}

	out := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldError{
			Loc:  []string{"body", jsonName(fe)},
			Msg:  bindMessage(fe),
			Type: "value_error." + fe.Tag(),
		})
	}
	c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": out})
}

func jsonName(fe validator.FieldError) string {
	if fe.Field() == "" {
		return strings.ToLower(fe.StructField())
	}
	return fe.Field()
}

func bindMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "email":
		return "value is not a valid email address"
	case "min":
		return "ensure this value has at least " + fe.Param() + " characters"
	case "max":
		return "ensure this value has at most " + fe.Param() + " characters"
	default:
		return "invalid value"
	}
}
